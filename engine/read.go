package engine

import (
	"context"
	"sort"

	"udtkit/audit"
	dbsql "udtkit/data/db/sql"
	"udtkit/data/orm"
	"udtkit/entity"
	"udtkit/errors"
	"udtkit/field"
	"udtkit/invalidate"
	"udtkit/logging"
	"udtkit/store"
)

// Get 按主键读取，不存在或读取失败时返回 (nil, false)
func (e *Engine[T, PT]) Get(ctx context.Context, code string) (*T, bool) {
	if code == "" {
		return nil, false
	}
	key := invalidate.Key(e.schema.Table.Name, code)
	if e.rows != nil {
		if row, ok := e.rows.Get(key); ok {
			return e.decode(ctx, row), true
		}
	}

	row, err := e.store.GetByKey(ctx, e.schema.Table.Name, code)
	if err != nil {
		if !store.IsNotFound(err) {
			storeCode, msg := e.store.LastError()
			e.logger.Error(ctx, "get failed", logging.Code(code),
				logging.Int("store_code", storeCode), logging.String("store_message", msg), logging.Error(err))
		}
		return nil, false
	}
	if e.rows != nil {
		e.rows.Set(key, row)
	}
	return e.decode(ctx, row), true
}

// GetAll 读取全部记录，可附加过滤与分页；结果按 active 优先、主键字典序排列。
// 分页未指定排序时按主键分页。
// 单个字段解码失败只记录日志，该字段取哨兵值。
func (e *Engine[T, PT]) GetAll(ctx context.Context, opts ...orm.QueryOption) ([]*T, bool) {
	d := e.store.Dialect()
	sel := dbsql.ForDialect(d).Select().From(e.schema.Table.Name)
	q := orm.CollectQueryOptions(opts...)
	if (q.Limit > 0 || q.Offset > 0) && len(q.OrderBy) == 0 {
		// 分页需要确定的行序
		q.OrderBy = []orm.OrderBy{{Column: store.CodeColumn}}
	}
	sel = q.Apply(sel, d.QuoteIdentifier)
	query, args, err := sel.Build()
	if err != nil {
		e.logger.Error(ctx, "build query failed", logging.Error(err))
		return nil, false
	}

	rows, err := e.store.RawQuery(ctx, query, args...)
	if err != nil {
		code, msg := e.store.LastError()
		e.logger.Error(ctx, "get all failed",
			logging.Int("store_code", code), logging.String("store_message", msg), logging.Error(err))
		return nil, false
	}

	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		out = append(out, e.decode(ctx, row))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := active(out[i]), active(out[j])
		if ai != aj {
			return ai
		}
		return PT(out[i]).GetCode() < PT(out[j]).GetCode()
	})
	return out, true
}

func active[T any](m *T) bool {
	if soft, ok := any(m).(entity.ISoftDeletable); ok {
		return soft.IsActive()
	}
	return true
}

// decode 行 -> 实例，并以解码结果作为原始快照
func (e *Engine[T, PT]) decode(ctx context.Context, row store.Row) *T {
	m := new(T)
	rec := PT(m)
	rec.SetCode(row.Code())
	rec.SetName(row.Name())

	for _, b := range e.schema.Fields() {
		d := b.Field
		cols := d.Columns()
		if d.Kind == field.DateTimePair {
			date, dateErr := d.ParseDatePart(row[cols[0]])
			clock, clockErr := d.ParseTimePart(row[cols[1]])
			e.decodeFailed(ctx, rec.GetCode(), d, errors.Join(dateErr, clockErr))
			b.Set(m, field.Combine(date, clock))
			continue
		}
		v, err := d.Decode(row[cols[0]])
		e.decodeFailed(ctx, rec.GetCode(), d, err)
		b.Set(m, v)
	}

	rec.SetOriginal(audit.Capture(rec))
	return m
}

func (e *Engine[T, PT]) decodeFailed(ctx context.Context, code string, d *field.Descriptor, err error) {
	if err == nil {
		return
	}
	e.logger.Warn(ctx, "field decode fallback",
		logging.Code(code), logging.String("field", d.Name), logging.Error(err))
}
