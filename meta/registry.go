package meta

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"udtkit/entity"
	"udtkit/errors"
	"udtkit/field"
	"udtkit/logging"
)

// Schema 一个模型类型的表描述与有序字段绑定
type Schema[T any] struct {
	Table    TableDescriptor
	Bindings []Binding[T]
	index    map[string]int
}

// Fields 按声明顺序返回字段绑定
func (s *Schema[T]) Fields() []Binding[T] {
	return s.Bindings
}

// Field 按字段名称查找绑定
func (s *Schema[T]) Field(name string) (Binding[T], bool) {
	i, ok := s.index[name]
	if !ok {
		return Binding[T]{}, false
	}
	return s.Bindings[i], true
}

// Descriptors 按声明顺序返回字段描述
func (s *Schema[T]) Descriptors() []*field.Descriptor {
	out := make([]*field.Descriptor, len(s.Bindings))
	for i, b := range s.Bindings {
		out[i] = b.Field
	}
	return out
}

// TableSchema 与类型无关的表结构视图，供 DDL 生成等使用
type TableSchema struct {
	Table  TableDescriptor
	Fields []*field.Descriptor
}

type built struct {
	schema any
	info   TableSchema
}

// entry 构建结果经 ready 发布，未经 once 的读取方只看 ready
type entry struct {
	once  sync.Once
	ready atomic.Pointer[built]
	err   error
}

// Registry 进程级元数据注册表：每个类型首次访问时构建一次，之后无锁读取
type Registry struct {
	entries sync.Map // reflect.Type -> *entry
	tables  sync.Map // 表名 -> reflect.Type
	logger  logging.Logger
}

// Option 注册表选项
type Option func(*Registry)

// WithLogger 指定日志
func WithLogger(l logging.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry 创建注册表
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrGlobal(r.logger)
	return r
}

// Resolve 返回类型 T 的结构，首次调用时构建；元数据错误对该类型是致命的
func Resolve[T any, PT Describer[T]](r *Registry) (*Schema[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	v, _ := r.entries.LoadOrStore(typ, &entry{})
	e := v.(*entry)
	e.once.Do(func() {
		s, err := build[T, PT]()
		if err == nil {
			err = r.claimTable(s.Table.Name, typ)
		}
		if err != nil {
			e.err = err
			r.logger.Error(context.Background(), "model registration failed",
				logging.String("type", typ.String()), logging.Error(err))
			return
		}
		e.ready.Store(&built{schema: s, info: TableSchema{Table: s.Table, Fields: s.Descriptors()}})
		r.logger.Debug(context.Background(), "model registered",
			logging.String("type", typ.String()),
			logging.Table(s.Table.Name),
			logging.Int("fields", len(s.Bindings)),
			logging.String("capabilities", s.Table.Capabilities.String()))
	})
	if e.err != nil {
		return nil, e.err
	}
	return e.ready.Load().schema.(*Schema[T]), nil
}

// TableOf 返回类型 T 的表描述，未构建时先构建
func TableOf[T any, PT Describer[T]](r *Registry) (TableDescriptor, error) {
	s, err := Resolve[T, PT](r)
	if err != nil {
		return TableDescriptor{}, err
	}
	return s.Table, nil
}

// MustResolve 同 Resolve，出错时 panic，用于启动阶段
func MustResolve[T any, PT Describer[T]](r *Registry) *Schema[T] {
	s, err := Resolve[T, PT](r)
	if err != nil {
		panic(err)
	}
	return s
}

func (r *Registry) claimTable(name string, typ reflect.Type) error {
	prev, loaded := r.tables.LoadOrStore(name, typ)
	if loaded && prev.(reflect.Type) != typ {
		return errors.Errorf(errors.ErrCodeSchema, "表 %s 已被类型 %s 映射", name, prev.(reflect.Type))
	}
	return nil
}

// TableFor 返回已构建类型的表描述，不触发构建；
// 构建入口是 Resolve/TableOf/Preload，尚未构建或构建失败时返回 false
func (r *Registry) TableFor(typ reflect.Type) (TableDescriptor, bool) {
	v, ok := r.entries.Load(typ)
	if !ok {
		return TableDescriptor{}, false
	}
	b := v.(*entry).ready.Load()
	if b == nil {
		return TableDescriptor{}, false
	}
	return b.info.Table, true
}

// TypeForTable 表名反查模型类型，用于解析字段关联
func (r *Registry) TypeForTable(name string) (reflect.Type, bool) {
	v, ok := r.tables.Load(name)
	if !ok {
		return nil, false
	}
	return v.(reflect.Type), true
}

// Schemas 按表名排序返回所有已构建的表结构
func (r *Registry) Schemas() []TableSchema {
	var out []TableSchema
	r.entries.Range(func(_, v any) bool {
		if b := v.(*entry).ready.Load(); b != nil {
			out = append(out, b.info)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Table.Name < out[j].Table.Name })
	return out
}

// Loader 延迟解析一个类型
type Loader func(r *Registry) error

// Load 返回解析类型 T 的 Loader
func Load[T any, PT Describer[T]]() Loader {
	return func(r *Registry) error {
		_, err := Resolve[T, PT](r)
		return err
	}
}

// Preload 并发解析多个类型，返回第一个错误
func (r *Registry) Preload(ctx context.Context, loaders ...Loader) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, load := range loaders {
		load := load
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return load(r)
		})
	}
	return g.Wait()
}

func build[T any, PT Describer[T]]() (*Schema[T], error) {
	var b Builder[T]
	PT(new(T)).Describe(&b)

	if b.table == nil {
		return nil, errors.Errorf(errors.ErrCodeSchema, "类型 %s 缺少表描述", reflect.TypeOf((*T)(nil)).Elem())
	}
	td := *b.table
	errs := append([]error{td.Validate()}, b.errs...)

	bindings := make([]Binding[T], 0, len(b.bindings)+5)
	for i, bd := range b.bindings {
		if bd.Field.Name == "" {
			bd.Field = bd.Field.WithOrdinal(i + 1)
		}
		bindings = append(bindings, bd)
	}

	var caps Capability
	bindings, caps = appendCapabilities[T](bindings)
	td.Capabilities = caps

	index := make(map[string]int, len(bindings))
	columns := make(map[string]string)
	for i, bd := range bindings {
		if _, dup := index[bd.Field.Name]; dup {
			errs = append(errs, errors.Errorf(errors.ErrCodeSchema, "表 %s 字段名重复: %s", td.Name, bd.Field.Name))
			continue
		}
		index[bd.Field.Name] = i
		for _, col := range bd.Field.Columns() {
			if other, dup := columns[col]; dup {
				errs = append(errs, errors.Errorf(errors.ErrCodeSchema, "表 %s 列 %s 同时属于 %s 和 %s", td.Name, col, other, bd.Member))
				continue
			}
			columns[col] = bd.Member
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeSchema, "模型注册失败: "+td.Name)
	}
	return &Schema[T]{Table: td, Bindings: bindings, index: index}, nil
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

// appendCapabilities 为模型实现的能力接口追加审计/软删除字段
func appendCapabilities[T any](bindings []Binding[T]) ([]Binding[T], Capability) {
	var caps Capability
	probe := any(new(T))

	if _, ok := probe.(entity.IDateAudited); ok {
		caps |= CapDateAudit
		dated := func(m *T) entity.IDateAudited { return any(m).(entity.IDateAudited) }
		bindings = append(bindings,
			Binding[T]{
				Member: "CreatedAt",
				Field:  field.DateTimeField("CreatedAt", "Created at").Descriptor(),
				Get:    func(m *T) any { return dated(m).GetCreatedAt() },
				Set:    func(m *T, v any) { dated(m).SetCreatedAt(asTime(v)) },
			},
			Binding[T]{
				Member: "UpdatedAt",
				Field:  field.DateTimeField("UpdatedAt", "Updated at").Descriptor(),
				Get:    func(m *T) any { return dated(m).GetUpdatedAt() },
				Set:    func(m *T, v any) { dated(m).SetUpdatedAt(asTime(v)) },
			})
	}

	if _, ok := probe.(entity.IUserAudited); ok {
		caps |= CapUserAudit
		signed := func(m *T) entity.IUserAudited { return any(m).(entity.IUserAudited) }
		bindings = append(bindings,
			Binding[T]{
				Member: "CreatedBy",
				Field:  field.TextField("CreatedBy", "Created by").Descriptor(),
				Get:    func(m *T) any { return signed(m).GetCreatedBy() },
				Set:    func(m *T, v any) { signed(m).SetCreatedBy(field.ParseText(v, nil)) },
			},
			Binding[T]{
				Member: "UpdatedBy",
				Field:  field.TextField("UpdatedBy", "Updated by").Descriptor(),
				Get:    func(m *T) any { return signed(m).GetUpdatedBy() },
				Set:    func(m *T, v any) { signed(m).SetUpdatedBy(field.ParseText(v, nil)) },
			})
	}

	if _, ok := probe.(entity.ISoftDeletable); ok {
		caps |= CapSoftDelete
		bindings = append(bindings, Binding[T]{
			Member: "Active",
			Field:  field.BoolField("Active", "Active").Default("Y").Descriptor(),
			Get:    func(m *T) any { return any(m).(entity.ISoftDeletable).IsActive() },
			Set: func(m *T, v any) {
				yes, _ := v.(bool)
				any(m).(entity.ISoftDeletable).LoadActive(yes)
			},
		})
	}

	return bindings, caps
}
