package meta

import (
	"time"

	"udtkit/errors"
	"udtkit/field"
)

// Binding 模型成员与字段描述的绑定，Get/Set 读写类型值
type Binding[T any] struct {
	Member string
	Field  *field.Descriptor
	Get    func(m *T) any
	Set    func(m *T, v any)
}

// Describer 由模型指针类型实现，声明表与字段
type Describer[T any] interface {
	*T
	Describe(b *Builder[T])
}

// Builder 收集模型的表描述与字段绑定，声明顺序即字段顺序
type Builder[T any] struct {
	table    *TableDescriptor
	bindings []Binding[T]
	errs     []error
}

// Table 声明表描述
func (b *Builder[T]) Table(td TableDescriptor) {
	b.table = &td
}

// Bind 声明一个字段绑定
func (b *Builder[T]) Bind(member string, fb *field.Builder, get func(m *T) any, set func(m *T, v any)) {
	d := fb.Descriptor()
	if d.Err != nil {
		b.errs = append(b.errs, d.Err)
	}
	if get == nil || set == nil {
		b.errs = append(b.errs, errors.Errorf(errors.ErrCodeSchema, "成员 %s 缺少读写函数", member))
	}
	b.bindings = append(b.bindings, Binding[T]{Member: member, Field: d, Get: get, Set: set})
}

// String 绑定 string 成员（Text/Memo）
func String[T any](b *Builder[T], member string, fb *field.Builder, ptr func(m *T) *string) {
	b.Bind(member, fb,
		func(m *T) any { return *ptr(m) },
		func(m *T, v any) { *ptr(m) = field.ParseText(v, nil) })
}

// Bool 绑定 bool 成员，空值写为 false
func Bool[T any](b *Builder[T], member string, fb *field.Builder, ptr func(m *T) *bool) {
	b.Bind(member, fb,
		func(m *T) any { return *ptr(m) },
		func(m *T, v any) {
			yes, _ := v.(bool)
			*ptr(m) = yes
		})
}

// NullBool 绑定 *bool 成员，保留空值
func NullBool[T any](b *Builder[T], member string, fb *field.Builder, ptr func(m *T) **bool) {
	b.Bind(member, fb,
		func(m *T) any {
			if p := *ptr(m); p != nil {
				return *p
			}
			return nil
		},
		func(m *T, v any) {
			if yes, ok := v.(bool); ok {
				*ptr(m) = &yes
				return
			}
			*ptr(m) = nil
		})
}

// Int 绑定 int64 成员
func Int[T any](b *Builder[T], member string, fb *field.Builder, ptr func(m *T) *int64) {
	b.Bind(member, fb,
		func(m *T) any { return *ptr(m) },
		func(m *T, v any) {
			n, _ := field.ParseInt(v)
			*ptr(m) = n
		})
}

// NullInt 绑定 *int64 成员，空值可采用默认值
func NullInt[T any](b *Builder[T], member string, fb *field.Builder, ptr func(m *T) **int64) {
	b.Bind(member, fb,
		func(m *T) any {
			if p := *ptr(m); p != nil {
				return *p
			}
			return nil
		},
		func(m *T, v any) {
			if v == nil {
				*ptr(m) = nil
				return
			}
			n, _ := field.ParseInt(v)
			*ptr(m) = &n
		})
}

// Float 绑定 float64 成员
func Float[T any](b *Builder[T], member string, fb *field.Builder, ptr func(m *T) *float64) {
	b.Bind(member, fb,
		func(m *T) any { return *ptr(m) },
		func(m *T, v any) {
			f, _ := field.ParseFloat(v)
			*ptr(m) = f
		})
}

// Time 绑定 time.Time 成员（Date/Time/DateTimePair）
func Time[T any](b *Builder[T], member string, fb *field.Builder, ptr func(m *T) *time.Time) {
	b.Bind(member, fb,
		func(m *T) any { return *ptr(m) },
		func(m *T, v any) {
			t, _ := v.(time.Time)
			*ptr(m) = t
		})
}
