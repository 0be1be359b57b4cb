package engine

import (
	"context"
	"fmt"
	"time"

	"udtkit/audit"
	"udtkit/entity"
	"udtkit/errors"
	"udtkit/field"
	"udtkit/store"
)

// Save 按主键是否存在决定插入或更新。
// 字段校验失败时发出 InvalidField 通知并返回 false，不访问存储。
func (e *Engine[T, PT]) Save(ctx context.Context, m *T) bool {
	rec := PT(m)
	rec.SetErr(nil)

	if !e.validate(ctx, m) {
		return false
	}
	code := rec.GetCode()
	if code == "" {
		return e.fail(ctx, rec, "save", e.keyError(entity.ErrCodeNotSet, "保存前需要主键"))
	}
	row, found, ok := e.lookup(ctx, rec, "save", code)
	if !ok {
		return false
	}
	return e.write(ctx, m, row, found)
}

// Add 分配主键后插入。失败时清除本次生成的主键与默认名称，便于重试。
func (e *Engine[T, PT]) Add(ctx context.Context, m *T) bool {
	rec := PT(m)
	rec.SetErr(nil)

	if !e.validate(ctx, m) {
		return false
	}
	assigned, err := e.keys.Assign(ctx, e.schema.Table, rec, e.exists)
	if err != nil {
		assigned.Rollback(rec)
		return e.fail(ctx, rec, "add", err)
	}
	if !e.write(ctx, m, nil, false) {
		assigned.Rollback(rec)
		return false
	}
	return true
}

// Update 更新已存在的记录。加载过的实例先恢复原始主键再查找，避免误改主键。
func (e *Engine[T, PT]) Update(ctx context.Context, m *T) bool {
	return e.update(ctx, m, false)
}

// Restore 恢复软删除的记录
func (e *Engine[T, PT]) Restore(ctx context.Context, m *T) bool {
	return e.update(ctx, m, true)
}

func (e *Engine[T, PT]) update(ctx context.Context, m *T, restore bool) bool {
	rec := PT(m)
	rec.SetErr(nil)

	if orig := rec.Original(); orig.Loaded && orig.Code != "" {
		rec.SetCode(orig.Code)
	}
	code := rec.GetCode()
	if code == "" {
		return e.fail(ctx, rec, "update", e.keyError(entity.ErrCodeNotSet, "更新前需要主键"))
	}
	row, found, ok := e.lookup(ctx, rec, "update", code)
	if !ok {
		return false
	}
	if !found {
		return e.fail(ctx, rec, "update", e.keyError(entity.ErrItemNotFound, "主键 "+code+" 不存在"))
	}
	if soft, ok := any(m).(entity.ISoftDeletable); ok && restore {
		soft.SetActive(true)
	}
	if !e.validate(ctx, m) {
		return false
	}
	return e.write(ctx, m, row, true)
}

// Delete 软删除类型置 active=false 后保存，其余类型物理删除。
// 对已软删除的记录重复调用仍返回 true。
func (e *Engine[T, PT]) Delete(ctx context.Context, m *T) bool {
	rec := PT(m)
	rec.SetErr(nil)

	if soft, ok := any(m).(entity.ISoftDeletable); ok {
		soft.SetActive(false)
		return e.Save(ctx, m)
	}

	code := rec.GetCode()
	if code == "" {
		return e.fail(ctx, rec, "delete", e.keyError(entity.ErrCodeNotSet, "删除前需要主键"))
	}
	if err := e.store.Remove(ctx, e.schema.Table.Name, code); err != nil {
		return e.storeFailure(ctx, rec, "delete", err)
	}
	e.changed(ctx, code, rec.Original().Code)
	rec.SetOriginal(entity.Snapshot{})
	return true
}

func (e *Engine[T, PT]) keyError(sentinel error, msg string) error {
	return errors.WrapError(sentinel, errors.GetErrorCode(sentinel), fmt.Sprintf("%s: %s", e.schema.Table.Name, msg))
}

// exists 供主键生成器检查重复
func (e *Engine[T, PT]) exists(ctx context.Context, code string) (bool, error) {
	_, err := e.store.GetByKey(ctx, e.schema.Table.Name, code)
	switch {
	case err == nil:
		return true, nil
	case store.IsNotFound(err):
		return false, nil
	}
	return false, err
}

// lookup 按主键取行；ok 为 false 表示存储失败且已记录
func (e *Engine[T, PT]) lookup(ctx context.Context, rec PT, op, code string) (store.Row, bool, bool) {
	row, err := e.store.GetByKey(ctx, e.schema.Table.Name, code)
	switch {
	case err == nil:
		return row, true, true
	case store.IsNotFound(err):
		return nil, false, true
	}
	return nil, false, e.storeFailure(ctx, rec, op, err)
}

// validate 逐字段校验，空值且有默认值时按默认值校验；遇到第一个无效字段即停止
func (e *Engine[T, PT]) validate(ctx context.Context, m *T) bool {
	for _, b := range e.schema.Fields() {
		d := b.Field
		v := b.Get(m)
		if d.IsNull(v) && d.HasDefault() {
			v = d.DefaultValue()
		}
		if d.Validate(v) && !(d.Mandatory && d.IsNull(v)) {
			continue
		}
		inv := InvalidField{Table: e.schema.Table.Name, Member: b.Member, Field: d, Value: v}
		PT(m).SetErr(errors.Errorf(errors.ErrCodeValidation, "%s.%s: 字段值无效", inv.Table, inv.Member))
		e.onInvalid(ctx, inv)
		return false
	}
	return true
}

// write 盖审计戳、编码并写入；existing 为更新前的行
func (e *Engine[T, PT]) write(ctx context.Context, m *T, existing store.Row, found bool) bool {
	rec := PT(m)
	code := rec.GetCode()
	if orig := rec.Original(); found && (!orig.Loaded || orig.Code != code) {
		rec.SetOriginal(audit.Capture(PT(e.decode(ctx, existing))))
	}
	previous := rec.Original().Code

	audit.Apply(rec, found, e.now(), e.user(ctx))
	values := e.encode(m, !found)

	var err error
	op := "insert"
	if found {
		op = "update"
		err = e.store.Update(ctx, e.schema.Table.Name, values)
	} else {
		err = e.store.Insert(ctx, e.schema.Table.Name, values)
	}
	if err != nil {
		return e.storeFailure(ctx, rec, op, err)
	}

	audit.Commit(rec)
	e.changed(ctx, previous, code)
	return true
}

// now 审计时间精确到分钟，与 HHmm 线格式一致
func (e *Engine[T, PT]) now() time.Time {
	return e.clock().UTC().Truncate(time.Minute)
}

// encode 编码全部字段。新记录的空值采用默认值，更新时只为必填字段补默认值。
func (e *Engine[T, PT]) encode(m *T, isNew bool) store.Values {
	rec := PT(m)
	values := store.Values{Code: rec.GetCode(), Name: rec.GetName()}
	for _, b := range e.schema.Fields() {
		d := b.Field
		v := b.Get(m)
		if d.IsNull(v) && d.HasDefault() && (isNew || d.Mandatory) {
			v = d.DefaultValue()
			b.Set(m, v)
		}
		cols := d.Columns()
		if d.Kind == field.DateTimePair {
			values.Add(cols[0], d.DateToWire(v))
			values.Add(cols[1], d.TimeToWire(v))
			continue
		}
		values.Add(cols[0], d.ToWire(v))
	}
	return values
}
