package codegen

import (
	crand "crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"udtkit/codegen/snowflake"
	"udtkit/errors"
)

// Source 随机唯一主键来源
type Source interface {
	NewCode() (string, error)
}

// UUIDSource 以 UUID 作为主键，默认 v7（按时间有序）
type UUIDSource struct {
	// V4 为 true 时使用完全随机的 v4
	V4 bool
}

func (s UUIDSource) NewCode() (string, error) {
	if s.V4 {
		return uuid.NewString(), nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ULIDSource 以单调 ULID 作为主键
type ULIDSource struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewULIDSource 创建 ULID 来源
func NewULIDSource() *ULIDSource {
	return &ULIDSource{
		entropy: ulid.Monotonic(crand.Reader, 0),
		now:     time.Now,
	}
}

func (s *ULIDSource) NewCode() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(s.now()), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewSource 按名称创建来源：uuid、uuidv4、ulid、snowflake
func NewSource(name string, datacenterID, workerID int64) (Source, error) {
	switch strings.ToLower(name) {
	case "", "uuid", "uuidv7":
		return UUIDSource{}, nil
	case "uuidv4":
		return UUIDSource{V4: true}, nil
	case "ulid":
		return NewULIDSource(), nil
	case "snowflake":
		g, err := snowflake.NewGenerator(datacenterID, workerID)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "snowflake 配置无效")
		}
		return g, nil
	}
	return nil, errors.Errorf(errors.ErrCodeInvalidInput, "未知的主键来源: %s", name)
}
