// Package natsjetstream 基于 NATS JetStream 的传输。
// 订阅使用每进程一个的临时推送消费者，只投递订阅之后的新消息。
package natsjetstream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"udtkit/logging"
	"udtkit/messaging"
)

// Config JetStream 传输配置
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	AckWait       time.Duration
	// MaxAge 流中消息保留时长，默认 1 小时
	MaxAge   time.Duration
	Replicas int
	Logger   logging.Logger
	Conn     *nats.Conn
}

// Transport messaging.Transport 的 JetStream 实现
type Transport struct {
	*messaging.Dispatcher

	cfg      Config
	logger   logging.Logger
	conn     *nats.Conn
	js       nats.JetStreamContext
	ownsConn bool

	mu      sync.Mutex
	subs    map[string]*nats.Subscription
	running bool
}

var _ messaging.Transport = (*Transport)(nil)

// NewTransport 创建传输，Start 时才建立连接
func NewTransport(cfg Config) *Transport {
	if cfg.Stream == "" {
		cfg.Stream = "UDT"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "udt."
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	return &Transport{
		Dispatcher: messaging.NewDispatcher(),
		cfg:        cfg,
		logger:     logging.OrGlobal(cfg.Logger).WithFields(logging.String("component", "transport.nats")),
		subs:       make(map[string]*nats.Subscription),
	}
}

// Publish 发布到 <prefix><type>
func (t *Transport) Publish(ctx context.Context, message *messaging.Message) error {
	t.mu.Lock()
	js, running := t.js, t.running
	t.mu.Unlock()
	if !running || js == nil {
		return errors.New("nats transport not running")
	}
	data, err := message.Marshal()
	if err != nil {
		return err
	}
	_, err = js.Publish(t.subjectName(message.Type), data, nats.Context(ctx))
	return err
}

// Subscribe 注册处理器；运行中订阅新类型时立即建立消费者
func (t *Transport) Subscribe(messageType string, handler messaging.Handler) error {
	t.Add(messageType, handler)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.subscribeLocked(messageType)
	}
	return nil
}

// Start 连接、确保流存在并为已订阅类型建立消费者
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return errors.New("nats transport already running")
	}
	if err := t.ensureConnection(); err != nil {
		return err
	}
	if err := t.ensureStream(); err != nil {
		return err
	}
	for _, mt := range t.Types() {
		if err := t.subscribeLocked(mt); err != nil {
			return err
		}
	}
	t.running = true
	return nil
}

// Close 排空订阅；自建连接一并关闭
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	for mt, sub := range t.subs {
		_ = sub.Drain()
		delete(t.subs, mt)
	}
	if t.ownsConn && t.conn != nil {
		t.conn.Close()
	}
	t.conn, t.js = nil, nil
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

func (t *Transport) ensureConnection() error {
	if t.conn != nil && t.js != nil {
		return nil
	}
	if t.cfg.Conn != nil {
		t.conn = t.cfg.Conn
	} else {
		url := t.cfg.URL
		if url == "" {
			url = nats.DefaultURL
		}
		conn, err := nats.Connect(url, nats.Name("udtkit"))
		if err != nil {
			return err
		}
		t.conn, t.ownsConn = conn, true
	}
	js, err := t.conn.JetStream()
	if err != nil {
		return err
	}
	t.js = js
	return nil
}

func (t *Transport) streamConfig() *nats.StreamConfig {
	sc := &nats.StreamConfig{
		Name:      t.cfg.Stream,
		Subjects:  []string{t.cfg.SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    t.cfg.MaxAge,
	}
	if t.cfg.Replicas > 0 {
		sc.Replicas = t.cfg.Replicas
	}
	return sc
}

func (t *Transport) ensureStream() error {
	_, err := t.js.StreamInfo(t.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
		return err
	}
	_, err = t.js.AddStream(t.streamConfig())
	return err
}

// subscribeLocked 通配符订阅整个前缀
func (t *Transport) subscribeLocked(messageType string) error {
	if _, exists := t.subs[messageType]; exists {
		return nil
	}
	subject := t.subjectName(messageType)
	if messageType == messaging.Wildcard {
		subject = t.cfg.SubjectPrefix + ">"
	}
	sub, err := t.js.Subscribe(subject, t.handleMessage(messageType),
		nats.ManualAck(),
		nats.DeliverNew(),
		nats.AckWait(t.cfg.AckWait))
	if err != nil {
		return err
	}
	t.subs[messageType] = sub
	return nil
}

func (t *Transport) handleMessage(subscribed string) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx := context.Background()
		decoded, err := messaging.Unmarshal(msg.Data)
		if err != nil {
			t.logger.Warn(ctx, "decode nats message failed", logging.String("subject", msg.Subject), logging.Error(err))
			t.ack(ctx, msg)
			return
		}
		if decoded.Type == "" {
			decoded.Type = strings.TrimPrefix(msg.Subject, t.cfg.SubjectPrefix)
		}
		// 通配符订阅只交给通配符处理器，避免精确订阅重复处理
		if subscribed == messaging.Wildcard {
			t.DispatchWildcard(ctx, decoded, t.logger)
		} else {
			t.DispatchExact(ctx, decoded, t.logger)
		}
		t.ack(ctx, msg)
	}
}

func (t *Transport) ack(ctx context.Context, msg *nats.Msg) {
	if err := msg.Ack(); err != nil {
		t.logger.Warn(ctx, "nats ack failed", logging.Error(err))
	}
}

func (t *Transport) subjectName(messageType string) string {
	return t.cfg.SubjectPrefix + messageType
}
