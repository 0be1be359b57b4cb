// Package redisstreams 基于 Redis Streams 消费组的传输。
// 每个进程默认使用独立消费组，所有进程都能收到每条记录变更。
package redisstreams

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"udtkit/logging"
	"udtkit/messaging"
)

// client go-redis 命令子集，便于测试替换
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	Close() error
}

// Config Redis Streams 传输配置
type Config struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	// GroupName 为空时每个进程生成独立的组名
	GroupName    string
	ConsumerName string
	// MaxLen 近似裁剪流长度，0 表示不裁剪
	MaxLen       int64
	BlockTimeout time.Duration
	ReadCount    int64
	Logger       logging.Logger

	MinReadBackoff time.Duration // 读取错误最小退避，默认 100ms
	MaxReadBackoff time.Duration // 读取错误最大退避，默认 5s
}

// Transport messaging.Transport 的 Redis Streams 实现
type Transport struct {
	*messaging.Dispatcher

	cfg       Config
	client    client
	ownClient bool
	logger    logging.Logger

	mu      sync.Mutex
	readers map[string]bool
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ messaging.Transport = (*Transport)(nil)

// NewTransport 创建传输；未提供 Client 时按 Addr 建立连接
func NewTransport(cfg Config) *Transport {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "udt:bus:"
	}
	if cfg.GroupName == "" {
		cfg.GroupName = "udt-" + uuid.NewString()
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = "consumer-" + uuid.NewString()
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ReadCount <= 0 {
		cfg.ReadCount = 10
	}
	if cfg.MinReadBackoff <= 0 {
		cfg.MinReadBackoff = 100 * time.Millisecond
	}
	if cfg.MaxReadBackoff <= 0 {
		cfg.MaxReadBackoff = 5 * time.Second
	}

	t := &Transport{
		Dispatcher: messaging.NewDispatcher(),
		cfg:        cfg,
		readers:    make(map[string]bool),
		logger:     logging.OrGlobal(cfg.Logger).WithFields(logging.String("component", "transport.redisstreams")),
	}
	if cfg.Client != nil {
		t.client = cfg.Client
	} else {
		t.client = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		t.ownClient = true
	}
	return t
}

func newWithClient(cfg Config, c client) *Transport {
	cfg.Client = nil
	t := NewTransport(cfg)
	if t.ownClient {
		_ = t.client.Close()
	}
	t.client, t.ownClient = c, false
	return t
}

// Publish XADD 一条消息
func (t *Transport) Publish(ctx context.Context, message *messaging.Message) error {
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	if !running {
		return errors.New("redis streams transport not running")
	}
	values, err := encodeMessage(message)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{Stream: t.streamName(message.Type), Values: values}
	if t.cfg.MaxLen > 0 {
		args.MaxLen = t.cfg.MaxLen
		args.Approx = true
	}
	return t.client.XAdd(ctx, args).Err()
}

// Subscribe 注册处理器；运行中订阅新类型时立即启动读取
func (t *Transport) Subscribe(messageType string, handler messaging.Handler) error {
	if messageType == messaging.Wildcard {
		return errors.New("redis streams transport does not support wildcard subscriptions")
	}
	t.Add(messageType, handler)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.startReaderLocked(messageType)
	}
	return nil
}

// Start 为已订阅的类型启动读取协程
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return errors.New("redis streams transport already running")
	}
	t.ctx, t.cancel = context.WithCancel(context.WithoutCancel(ctx))
	t.running = true
	for _, mt := range t.Types() {
		t.startReaderLocked(mt)
	}
	return nil
}

// Close 停止读取；自建的客户端一并关闭
func (t *Transport) Close() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.cancel()
	t.readers = make(map[string]bool)
	t.mu.Unlock()

	t.wg.Wait()
	if t.ownClient {
		return t.client.Close()
	}
	return nil
}

// Stats 统计
func (t *Transport) Stats() messaging.TransportStats {
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	return messaging.TransportStats{
		Running:      running,
		HandlerCount: t.Count(),
		MessageTypes: t.Types(),
	}
}

func (t *Transport) startReaderLocked(messageType string) {
	if t.readers[messageType] {
		return
	}
	t.readers[messageType] = true
	t.wg.Add(1)
	go t.readLoop(t.ctx, messageType)
}

func (t *Transport) readLoop(ctx context.Context, messageType string) {
	defer t.wg.Done()
	stream := t.streamName(messageType)
	if err := t.ensureGroup(ctx, stream); err != nil {
		t.logger.Warn(ctx, "ensure group failed", logging.String("stream", stream), logging.Error(err))
	}
	args := &redis.XReadGroupArgs{
		Group:    t.cfg.GroupName,
		Consumer: t.cfg.ConsumerName,
		Streams:  []string{stream, ">"},
		Count:    t.cfg.ReadCount,
		Block:    t.cfg.BlockTimeout,
	}

	backoff := t.cfg.MinReadBackoff
	for ctx.Err() == nil {
		res, err := t.client.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			t.logger.Warn(ctx, "xreadgroup failed", logging.Duration("backoff", backoff), logging.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, t.cfg.MaxReadBackoff)
			continue
		}
		backoff = t.cfg.MinReadBackoff

		for _, sr := range res {
			for _, entry := range sr.Messages {
				if msg, err := decodeMessage(entry); err != nil {
					t.logger.Warn(ctx, "decode stream entry failed", logging.String("entry", entry.ID), logging.Error(err))
				} else {
					t.Dispatch(ctx, msg, t.logger)
				}
				if err := t.client.XAck(ctx, sr.Stream, t.cfg.GroupName, entry.ID).Err(); err != nil {
					t.logger.Warn(ctx, "xack failed", logging.Error(err))
				}
			}
		}
	}
}

// ensureGroup 从流末尾创建消费组，已存在时忽略
func (t *Transport) ensureGroup(ctx context.Context, stream string) error {
	err := t.client.XGroupCreateMkStream(ctx, stream, t.cfg.GroupName, "$").Err()
	if err == nil || strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP") {
		return nil
	}
	return err
}

func (t *Transport) streamName(messageType string) string {
	return t.cfg.StreamPrefix + messageType
}

func encodeMessage(m *messaging.Message) (map[string]any, error) {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	data, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":        m.ID,
		"type":      m.Type,
		"timestamp": strconv.FormatInt(ts.UnixNano(), 10),
		"body":      string(data),
	}, nil
}

func decodeMessage(entry redis.XMessage) (*messaging.Message, error) {
	body, _ := entry.Values["body"].(string)
	if body == "" {
		return nil, errors.New("stream entry without body")
	}
	m, err := messaging.Unmarshal([]byte(body))
	if err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = entry.ID
	}
	if m.Type == "" {
		m.Type, _ = entry.Values["type"].(string)
	}
	return m, nil
}
