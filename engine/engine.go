// Package engine 映射实体的持久化引擎：按元数据编解码字段，分配主键，
// 盖审计戳，并通过 store.Store 读写远端表。
//
// 公开操作不返回错误：失败时返回 false，原因记录在日志与实体的 Err() 上。
package engine

import (
	"context"
	"time"

	"udtkit/cache"
	"udtkit/codegen"
	"udtkit/entity"
	"udtkit/errors"
	"udtkit/field"
	"udtkit/invalidate"
	"udtkit/logging"
	"udtkit/meta"
	"udtkit/store"
)

// Model 可被引擎持久化的模型指针类型
type Model[T any] interface {
	meta.Describer[T]
	entity.Record
}

// InvalidField 保存前校验失败的字段
type InvalidField struct {
	Table  string
	Member string
	Field  *field.Descriptor
	Value  any
}

// InvalidFieldHandler 接收校验失败通知，保存随即中止
type InvalidFieldHandler func(ctx context.Context, inv InvalidField)

type userKey struct{}

// ContextWithUser 在上下文中携带当前用户，用于审计戳
func ContextWithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext 取上下文中的当前用户
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}

type options struct {
	repo        store.Repository
	random      codegen.Source
	clock       func() time.Time
	user        func(ctx context.Context) string
	logger      logging.Logger
	onInvalid   InvalidFieldHandler
	invalidator invalidate.Invalidator
	rows        *cache.Cache[string, store.Row]
}

// Option 引擎选项
type Option func(*options)

// WithRepository 序列与下拉数据来源，Serial 表必需
func WithRepository(repo store.Repository) Option {
	return func(o *options) { o.repo = repo }
}

// WithRandomSource RandomUnique 表的主键来源，默认 UUID
func WithRandomSource(src codegen.Source) Option {
	return func(o *options) { o.random = src }
}

// WithClock 审计时间来源
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithUser 当前用户来源，默认取上下文；上下文未携带时使用 fallback
func WithUser(fallback string) Option {
	return func(o *options) {
		o.user = func(ctx context.Context) string {
			if user := UserFromContext(ctx); user != "" {
				return user
			}
			return fallback
		}
	}
}

// WithLogger 指定日志
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// OnInvalidField 校验失败通知，默认以 Info 级别记录
func OnInvalidField(h InvalidFieldHandler) Option {
	return func(o *options) { o.onInvalid = h }
}

// WithInvalidator 保存/删除成功后的下游缓存失效通知
func WithInvalidator(inv invalidate.Invalidator) Option {
	return func(o *options) { o.invalidator = inv }
}

// WithRowCache Get 使用的行缓存，键为 invalidate.Key(table, code)
func WithRowCache(c *cache.Cache[string, store.Row]) Option {
	return func(o *options) { o.rows = c }
}

// Engine 一个模型类型的持久化引擎，可被多个 goroutine 共享；
// 同一实体实例不应同时参与两个操作。
type Engine[T any, PT Model[T]] struct {
	schema    *meta.Schema[T]
	registry  *meta.Registry
	store     store.Store
	repo      store.Repository
	keys      *codegen.Generator
	clock     func() time.Time
	user      func(ctx context.Context) string
	logger    logging.Logger
	onInvalid InvalidFieldHandler
	notify    invalidate.Invalidator
	rows      *cache.Cache[string, store.Row]
}

// New 解析模型元数据并创建引擎；元数据错误直接返回
func New[T any, PT Model[T]](registry *meta.Registry, st store.Store, opts ...Option) (*Engine[T, PT], error) {
	if registry == nil || st == nil {
		return nil, errors.NewError(errors.ErrCodeUsage, "engine: 需要注册表与存储")
	}
	schema, err := meta.Resolve[T, PT](registry)
	if err != nil {
		return nil, err
	}

	o := options{
		clock: time.Now,
		user:  UserFromContext,
	}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine[T, PT]{
		schema:    schema,
		registry:  registry,
		store:     st,
		repo:      o.repo,
		clock:     o.clock,
		user:      o.user,
		logger:    logging.OrGlobal(o.logger).WithFields(logging.Table(schema.Table.Name)),
		onInvalid: o.onInvalid,
		notify:    o.invalidator,
		rows:      o.rows,
		keys:      codegen.New(o.random, o.repo),
	}
	if e.onInvalid == nil {
		e.onInvalid = e.logInvalid
	}
	if e.notify == nil {
		e.notify = invalidate.Nop{}
	}
	return e, nil
}

// Table 模型对应的表描述
func (e *Engine[T, PT]) Table() meta.TableDescriptor {
	return e.schema.Table
}

// Schema 模型的字段绑定
func (e *Engine[T, PT]) Schema() *meta.Schema[T] {
	return e.schema
}

func (e *Engine[T, PT]) logInvalid(ctx context.Context, inv InvalidField) {
	e.logger.Info(ctx, "invalid field",
		logging.String("member", inv.Member),
		logging.String("field", inv.Field.Name),
		logging.Any("value", inv.Value))
}

// fail 记录失败原因；主键错误为 Warn，其余为 Error
func (e *Engine[T, PT]) fail(ctx context.Context, rec entity.Record, op string, err error) bool {
	rec.SetErr(err)
	fields := []logging.Field{logging.String("op", op), logging.Code(rec.GetCode()), logging.Error(err)}
	if entity.IsKeyError(err) {
		e.logger.Warn(ctx, "key error", fields...)
		return false
	}
	e.logger.Error(ctx, "operation failed", fields...)
	return false
}

// storeFailure 记录存储端最近一次错误码与消息
func (e *Engine[T, PT]) storeFailure(ctx context.Context, rec entity.Record, op string, err error) bool {
	code, msg := e.store.LastError()
	rec.SetErr(err)
	e.logger.Error(ctx, "store operation failed",
		logging.String("op", op),
		logging.Code(rec.GetCode()),
		logging.Int("store_code", code),
		logging.String("store_message", msg),
		logging.Error(err))
	return false
}

// changed 同步驱逐本地行缓存，异步通知下游
func (e *Engine[T, PT]) changed(ctx context.Context, codes ...string) {
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		change := invalidate.Change{Table: e.schema.Table.Name, Code: code}
		if e.rows != nil {
			e.rows.Delete(change.Key())
		}
		e.notify.Invalidate(context.WithoutCancel(ctx), change)
	}
}
