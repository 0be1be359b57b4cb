package entity

import (
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"udtkit/errors"
)

type sample struct {
	Base
	DateAudit
	UserAudit
	SoftDelete
}

func TestCapabilities(t *testing.T) {
	var s any = &sample{}
	_, dated := s.(IDateAudited)
	_, signed := s.(IUserAudited)
	_, soft := s.(ISoftDeletable)
	_, rec := s.(Record)
	assert.True(t, dated)
	assert.True(t, signed)
	assert.True(t, soft)
	assert.True(t, rec)

	var plain any = &struct{ Base }{}
	_, soft = plain.(ISoftDeletable)
	assert.False(t, soft)
}

// TestSoftDelete_Touched 显式设置与回填的区别
func TestSoftDelete_Touched(t *testing.T) {
	var s SoftDelete
	s.LoadActive(true)
	assert.True(t, s.IsActive())
	assert.False(t, s.ActiveTouched())

	s.SetActive(false)
	assert.False(t, s.IsActive())
	assert.True(t, s.ActiveTouched())

	s.LoadActive(false)
	assert.False(t, s.ActiveTouched())
}

func TestBase_Snapshot(t *testing.T) {
	s := &sample{}
	s.SetCode("7")
	s.SetName("Seven")
	at := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	s.SetOriginal(Snapshot{Code: "7", Active: true, CreatedAt: at, CreatedBy: "manager", Loaded: true})

	s.SetCode("8")
	assert.Equal(t, "8", s.GetCode())
	assert.Equal(t, "7", s.Original().Code)
	assert.Equal(t, at, s.Original().CreatedAt)
}

func TestKeyErrors(t *testing.T) {
	err := errors.WrapError(ErrAlreadyExists, errors.ErrCodeAlreadyExists, "ITEMS/7")
	assert.True(t, stdErrors.Is(err, ErrAlreadyExists))
	assert.True(t, IsKeyError(err))
	assert.True(t, IsKeyError(ErrCodeNotSet))
	assert.True(t, IsKeyError(ErrItemNotFound))
	assert.False(t, IsKeyError(stdErrors.New("io")))
}
