package logging

import (
	"context"
	"io"
	"log"
	"os"
	"strings"
)

// StdLogger 标准库log实现
type StdLogger struct {
	out    *log.Logger
	prefix string
	level  Level
	fields []Field
}

// StdOption StdLogger 选项
type StdOption func(*StdLogger)

// WithWriter 指定输出目标
func WithWriter(w io.Writer) StdOption {
	return func(l *StdLogger) {
		l.out = log.New(w, "", log.LstdFlags)
	}
}

// WithLevel 指定最低输出级别
func WithLevel(level Level) StdOption {
	return func(l *StdLogger) {
		l.level = level
	}
}

// NewStdLogger 创建标准库Logger
func NewStdLogger(prefix string, opts ...StdOption) *StdLogger {
	l := &StdLogger{
		out:    log.New(os.Stderr, "", log.LstdFlags),
		prefix: prefix,
		level:  InfoLevel,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *StdLogger) format(msg string, fields []Field) string {
	var b strings.Builder
	if l.prefix != "" {
		b.WriteString(l.prefix)
		b.WriteByte(' ')
	}
	b.WriteString(msg)
	for _, f := range l.fields {
		b.WriteString(" " + f.Key + "=" + formatValue(f.Value))
	}
	for _, f := range fields {
		b.WriteString(" " + f.Key + "=" + formatValue(f.Value))
	}
	return b.String()
}

func (l *StdLogger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	l.out.Println("["+level.String()+"]", l.format(msg, fields))
}

func (l *StdLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.emit(DebugLevel, msg, fields)
}

func (l *StdLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.emit(InfoLevel, msg, fields)
}

func (l *StdLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.emit(WarnLevel, msg, fields)
}

func (l *StdLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.emit(ErrorLevel, msg, fields)
}

func (l *StdLogger) WithFields(fields ...Field) Logger {
	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)
	return &StdLogger{
		out:    l.out,
		prefix: l.prefix,
		level:  l.level,
		fields: newFields,
	}
}
