// Package memory 进程内队列传输，worker 池异步分发
package memory

import (
	"context"
	"errors"
	"sync"

	"udtkit/logging"
	"udtkit/messaging"
)

var (
	// ErrNotRunning 传输未启动或已关闭
	ErrNotRunning = errors.New("memory transport is not running")
	// ErrQueueFull 队列已满
	ErrQueueFull = errors.New("memory transport queue is full")
)

// Transport 内存消息传输
type Transport struct {
	*messaging.Dispatcher

	queue       chan *messaging.Message
	workerCount int
	logger      logging.Logger

	mu      sync.RWMutex
	running bool
	closed  bool
	ctx     context.Context
	wg      sync.WaitGroup
}

var _ messaging.Transport = (*Transport)(nil)

// New 创建内存传输；queueSize/workerCount <= 0 时分别取 1000/4
func New(queueSize, workerCount int, logger logging.Logger) *Transport {
	if queueSize <= 0 {
		queueSize = 1000
	}
	if workerCount <= 0 {
		workerCount = 4
	}
	return &Transport{
		Dispatcher:  messaging.NewDispatcher(),
		queue:       make(chan *messaging.Message, queueSize),
		workerCount: workerCount,
		logger:      logging.OrGlobal(logger).WithFields(logging.String("component", "transport.memory")),
	}
}

// Subscribe 注册处理器，"*" 订阅所有类型
func (t *Transport) Subscribe(messageType string, handler messaging.Handler) error {
	t.Add(messageType, handler)
	return nil
}

// Publish 非阻塞入队
func (t *Transport) Publish(ctx context.Context, message *messaging.Message) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.running {
		return ErrNotRunning
	}
	select {
	case t.queue <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Start 启动 worker；ctx 传给处理器
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.closed {
		return errors.New("memory transport already started")
	}
	t.running = true
	t.ctx = context.WithoutCancel(ctx)
	for i := 0; i < t.workerCount; i++ {
		t.wg.Add(1)
		go t.work()
	}
	return nil
}

func (t *Transport) work() {
	defer t.wg.Done()
	for m := range t.queue {
		t.Dispatch(t.ctx, m, t.logger)
	}
}

// Close 停止接收新消息，处理完队列中剩余消息后返回
func (t *Transport) Close() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running, t.closed = false, true
	close(t.queue)
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}

// Stats 统计
func (t *Transport) Stats() messaging.TransportStats {
	t.mu.RLock()
	running := t.running
	t.mu.RUnlock()
	return messaging.TransportStats{
		Running:      running,
		HandlerCount: t.Count(),
		MessageTypes: t.Types(),
		QueueSize:    cap(t.queue),
		QueueDepth:   len(t.queue),
		WorkerCount:  t.workerCount,
	}
}
