package logging

import (
	"context"
	"sync"
)

// Entry 一条被记录的日志
type Entry struct {
	Level   Level
	Message string
	Fields  []Field
}

// Field 按键查找字段值
func (e Entry) Field(key string) (any, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// MemoryLogger 将日志保存在内存中，供测试断言
type MemoryLogger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []Field
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (m *MemoryLogger) record(level Level, msg string, fields []Field) {
	all := make([]Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)
	m.mu.Lock()
	*m.entries = append(*m.entries, Entry{Level: level, Message: msg, Fields: all})
	m.mu.Unlock()
}

func (m *MemoryLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	m.record(DebugLevel, msg, fields)
}

func (m *MemoryLogger) Info(ctx context.Context, msg string, fields ...Field) {
	m.record(InfoLevel, msg, fields)
}

func (m *MemoryLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	m.record(WarnLevel, msg, fields)
}

func (m *MemoryLogger) Error(ctx context.Context, msg string, fields ...Field) {
	m.record(ErrorLevel, msg, fields)
}

func (m *MemoryLogger) WithFields(fields ...Field) Logger {
	nf := make([]Field, 0, len(m.fields)+len(fields))
	nf = append(nf, m.fields...)
	nf = append(nf, fields...)
	return &MemoryLogger{mu: m.mu, entries: m.entries, fields: nf}
}

// Entries 返回已记录日志的副本
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(*m.entries))
	copy(out, *m.entries)
	return out
}

// Find 返回指定级别、指定消息的日志
func (m *MemoryLogger) Find(level Level, msg string) []Entry {
	var out []Entry
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}
