package engine

import (
	"context"
	"strings"
	"unicode/utf8"

	dbsql "udtkit/data/db/sql"
	"udtkit/field"
	"udtkit/logging"
	"udtkit/meta"
	"udtkit/store"
)

type direction int

const (
	first direction = iota
	last
	next
	prev
)

func (d direction) String() string {
	switch d {
	case last:
		return "last"
	case next:
		return "next"
	case prev:
		return "prev"
	default:
		return "first"
	}
}

// First 主键顺序下的第一条记录，空表返回 (nil, false)
func (e *Engine[T, PT]) First(ctx context.Context) (*T, bool) {
	return e.locate(ctx, first, "")
}

// Last 主键顺序下的最后一条记录
func (e *Engine[T, PT]) Last(ctx context.Context) (*T, bool) {
	return e.locate(ctx, last, "")
}

// Next current 之后的记录；current 为空或已是最后一条时返回第一条
func (e *Engine[T, PT]) Next(ctx context.Context, current string) (*T, bool) {
	return e.locate(ctx, next, current)
}

// Prev current 之前的记录；current 为空或已是第一条时返回最后一条
func (e *Engine[T, PT]) Prev(ctx context.Context, current string) (*T, bool) {
	return e.locate(ctx, prev, current)
}

// ordering 排序表达式与对应的比较值。
// Serial 主键是变长数字文本，按当前最大长度左补零后比较即为数值顺序。
type ordering struct {
	expr  string
	width int
	pad   func(width int) string // 仅 Serial
}

// fit 补零宽度至少覆盖 current，current 比表中所有主键都长时仍按数值比较
func (o ordering) fit(current string) ordering {
	n := utf8.RuneCountInString(current)
	if o.pad == nil || n <= o.width {
		return o
	}
	return ordering{expr: o.pad(n), width: n, pad: o.pad}
}

func (o ordering) key(code string) string {
	if n := utf8.RuneCountInString(code); n < o.width {
		return strings.Repeat("0", o.width-n) + code
	}
	return code
}

func (e *Engine[T, PT]) ordering(ctx context.Context) (ordering, bool) {
	d := e.store.Dialect()
	code := d.QuoteIdentifier(store.CodeColumn)
	if e.schema.Table.Strategy != meta.Serial {
		return ordering{expr: code}, true
	}

	query, args, err := dbsql.ForDialect(d).
		Select("MAX(" + d.Length(code) + ") AS " + d.QuoteIdentifier("width")).
		From(e.schema.Table.Name).
		Build()
	if err != nil {
		e.logger.Error(ctx, "build query failed", logging.Error(err))
		return ordering{}, false
	}
	rows, err := e.store.RawQuery(ctx, query, args...)
	if err != nil {
		storeCode, msg := e.store.LastError()
		e.logger.Error(ctx, "max code length failed",
			logging.Int("store_code", storeCode), logging.String("store_message", msg), logging.Error(err))
		return ordering{}, false
	}
	var width int64
	if len(rows) > 0 {
		width, _ = field.ParseInt(rows[0]["width"])
	}
	pad := func(w int) string { return d.LeftPad(code, w) }
	return ordering{expr: pad(int(width)), width: int(width), pad: pad}, true
}

func (e *Engine[T, PT]) locate(ctx context.Context, dir direction, current string) (*T, bool) {
	ord, ok := e.ordering(ctx)
	if !ok {
		return nil, false
	}
	if e.schema.Table.Strategy == meta.Serial && ord.width == 0 {
		return nil, false
	}

	ord = ord.fit(current)

	switch {
	case dir == next && current == "":
		dir = first
	case dir == prev && current == "":
		dir = last
	}

	found, ok := e.adjacent(ctx, ord, dir, current)
	if ok && found == nil {
		switch dir {
		case next:
			found, ok = e.adjacent(ctx, ord, first, "")
		case prev:
			found, ok = e.adjacent(ctx, ord, last, "")
		}
	}
	if !ok || found == nil {
		return nil, false
	}
	return found, true
}

// adjacent 执行一次定位查询；ok 为 false 表示查询失败，found 为 nil 表示无结果
func (e *Engine[T, PT]) adjacent(ctx context.Context, ord ordering, dir direction, current string) (*T, bool) {
	d := e.store.Dialect()
	code := d.QuoteIdentifier(store.CodeColumn)
	sel := dbsql.ForDialect(d).Select().From(e.schema.Table.Name).Limit(1)

	switch dir {
	case first:
		sel = sel.OrderBy(ord.expr+" ASC", code+" ASC")
	case last:
		sel = sel.OrderBy(ord.expr+" DESC", code+" DESC")
	case next:
		sel = sel.Where(ord.expr+" > ?", ord.key(current)).OrderBy(ord.expr+" ASC", code+" ASC")
	case prev:
		sel = sel.Where(ord.expr+" < ?", ord.key(current)).OrderBy(ord.expr+" DESC", code+" DESC")
	}

	query, args, err := sel.Build()
	if err != nil {
		e.logger.Error(ctx, "build query failed", logging.Error(err))
		return nil, false
	}
	rows, err := e.store.RawQuery(ctx, query, args...)
	if err != nil {
		storeCode, msg := e.store.LastError()
		e.logger.Error(ctx, "locate failed",
			logging.String("direction", dir.String()),
			logging.Code(current),
			logging.Int("store_code", storeCode),
			logging.String("store_message", msg),
			logging.Error(err))
		return nil, false
	}
	if len(rows) == 0 {
		return nil, true
	}
	return e.decode(ctx, rows[0]), true
}
