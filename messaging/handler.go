package messaging

import (
	"context"
	"sort"
	"sync"

	"udtkit/logging"
)

// Wildcard 订阅所有消息类型
const Wildcard = "*"

// Handler 消息处理器
type Handler interface {
	Handle(ctx context.Context, message *Message) error
}

// HandlerFunc 函数适配器
type HandlerFunc func(ctx context.Context, message *Message) error

func (f HandlerFunc) Handle(ctx context.Context, message *Message) error {
	return f(ctx, message)
}

// Dispatcher 按消息类型维护处理器并分发，供各传输实现复用
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewDispatcher 创建分发器
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]Handler)}
}

// Add 注册处理器，返回该类型此前是否没有处理器
func (d *Dispatcher) Add(messageType string, h Handler) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	first := len(d.handlers[messageType]) == 0
	d.handlers[messageType] = append(d.handlers[messageType], h)
	return first
}

// Types 已订阅的消息类型（排序）
func (d *Dispatcher) Types() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	types := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count 处理器总数
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, hs := range d.handlers {
		n += len(hs)
	}
	return n
}

// Dispatch 依次调用精确匹配与通配符处理器；处理器错误只记录日志
func (d *Dispatcher) Dispatch(ctx context.Context, message *Message, logger logging.Logger) {
	d.dispatch(ctx, message, logger, true, true)
}

// DispatchExact 只调用精确匹配的处理器
func (d *Dispatcher) DispatchExact(ctx context.Context, message *Message, logger logging.Logger) {
	d.dispatch(ctx, message, logger, true, false)
}

// DispatchWildcard 只调用通配符处理器
func (d *Dispatcher) DispatchWildcard(ctx context.Context, message *Message, logger logging.Logger) {
	d.dispatch(ctx, message, logger, false, true)
}

func (d *Dispatcher) dispatch(ctx context.Context, message *Message, logger logging.Logger, exact, wildcard bool) {
	d.mu.RLock()
	var handlers []Handler
	if exact {
		handlers = append(handlers, d.handlers[message.Type]...)
	}
	if wildcard {
		handlers = append(handlers, d.handlers[Wildcard]...)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, message); err != nil {
			logger.Warn(ctx, "message handler failed",
				logging.String("message_type", message.Type),
				logging.String("message_id", message.ID),
				logging.Error(err))
		}
	}
}
