// Package invalidate 保存/删除成功后异步通知下游缓存失效。
// 通知是发后即忘的：失败只记录日志，不影响保存结果，也不保证先于后续读取完成。
package invalidate

import (
	"context"
	"sync"
	"time"

	"udtkit/logging"
	"udtkit/messaging"
	"udtkit/patterns/retry"
)

// MessageType 记录变更消息类型
const MessageType = "udt.record.changed"

// Change 变更的记录，Code 为变更前的主键
type Change struct {
	Table string `json:"table"`
	Code  string `json:"code"`
}

// Key 缓存键 table/code
func Key(table, code string) string {
	return table + "/" + code
}

// Key 变更对应的缓存键
func (c Change) Key() string { return Key(c.Table, c.Code) }

// Invalidator 接收变更通知，调用方不等待结果
type Invalidator interface {
	Invalidate(ctx context.Context, change Change)
}

// Evicter 可按键删除的缓存
type Evicter interface {
	Delete(key string) bool
}

// Publisher 通过消息传输广播变更，带重试
type Publisher struct {
	transport messaging.Transport
	retry     retry.Config
	timeout   time.Duration
	logger    logging.Logger
	wg        sync.WaitGroup
}

// Option 发布者选项
type Option func(*Publisher)

// WithRetry 发布重试配置
func WithRetry(cfg retry.Config) Option {
	return func(p *Publisher) { p.retry = cfg }
}

// WithTimeout 单次通知的总超时
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) { p.timeout = d }
}

// WithLogger 指定日志
func WithLogger(l logging.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// NewPublisher 创建发布者
func NewPublisher(transport messaging.Transport, opts ...Option) *Publisher {
	p := &Publisher{transport: transport, retry: retry.DefaultConfig(), timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrGlobal(p.logger).WithFields(logging.String("component", "invalidate"))
	return p
}

// Invalidate 在后台发布变更消息；ctx 的取消不会中断发布
func (p *Publisher) Invalidate(ctx context.Context, change Change) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		msg, err := messaging.NewMessage(MessageType, change)
		if err != nil {
			p.logger.Warn(ctx, "build invalidation message failed", logging.Table(change.Table), logging.Error(err))
			return
		}
		err = retry.Do(ctx, func(ctx context.Context, attempt int) error {
			return p.transport.Publish(ctx, msg)
		}, p.retry)
		if err != nil {
			p.logger.Warn(ctx, "publish invalidation failed",
				logging.Table(change.Table), logging.Code(change.Code), logging.Error(err))
		}
	}()
}

// Wait 等待已发出的通知结束，用于关闭与测试
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// Local 直接在后台删除本进程缓存
type Local struct {
	cache Evicter
	wg    sync.WaitGroup
}

// NewLocal 创建本地失效器
func NewLocal(cache Evicter) *Local {
	return &Local{cache: cache}
}

func (l *Local) Invalidate(_ context.Context, change Change) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.cache.Delete(change.Key())
	}()
}

// Wait 等待后台删除结束
func (l *Local) Wait() {
	l.wg.Wait()
}

// Nop 不做任何事
type Nop struct{}

func (Nop) Invalidate(context.Context, Change) {}

// CacheHandler 订阅端：收到变更后删除对应缓存键
func CacheHandler(cache Evicter, logger logging.Logger) messaging.Handler {
	logger = logging.OrGlobal(logger)
	return messaging.HandlerFunc(func(ctx context.Context, m *messaging.Message) error {
		var c Change
		if err := m.Decode(&c); err != nil {
			return err
		}
		if cache.Delete(c.Key()) {
			logger.Debug(ctx, "cache entry evicted", logging.Table(c.Table), logging.Code(c.Code))
		}
		return nil
	})
}
