// Package orm 描述 GetAll 等读取操作可附加的查询选项
package orm

import (
	dbsql "udtkit/data/db/sql"
)

// Condition 基础查询条件，Expr 使用占位符 ?，Args 对应参数列表。
// Expr 为原样 SQL 片段，列名应使用 Column 生成的带前缀名。
type Condition struct {
	Expr string
	Args []any
}

// OrderBy 排序字段
type OrderBy struct {
	Column string
	Desc   bool
}

// QueryOptions 读取选项
type QueryOptions struct {
	Where   []Condition
	OrderBy []OrderBy
	Limit   int
	Offset  int
}

// QueryOption 用于配置 QueryOptions
type QueryOption func(*QueryOptions)

// WithWhere 追加查询条件
func WithWhere(expr string, args ...any) QueryOption {
	return func(opts *QueryOptions) {
		if expr == "" {
			return
		}
		opts.Where = append(opts.Where, Condition{Expr: expr, Args: args})
	}
}

// WithOrderBy 追加数据库侧排序；GetAll 的最终顺序仍由引擎决定
func WithOrderBy(column string, desc bool) QueryOption {
	return func(opts *QueryOptions) {
		if column == "" {
			return
		}
		opts.OrderBy = append(opts.OrderBy, OrderBy{Column: column, Desc: desc})
	}
}

// WithLimit 设置条数上限
func WithLimit(limit int) QueryOption {
	return func(opts *QueryOptions) {
		if limit > 0 {
			opts.Limit = limit
		}
	}
}

// WithOffset 设置偏移
func WithOffset(offset int) QueryOption {
	return func(opts *QueryOptions) {
		if offset > 0 {
			opts.Offset = offset
		}
	}
}

// CollectQueryOptions 聚合 QueryOption
func CollectQueryOptions(options ...QueryOption) QueryOptions {
	var opts QueryOptions
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}
	return opts
}

// Apply 把选项写入 SELECT 构建器，quote 用于排序列加引号
func (o QueryOptions) Apply(sel dbsql.ISelectBuilder, quote func(string) string) dbsql.ISelectBuilder {
	for _, c := range o.Where {
		sel = sel.Where(c.Expr, c.Args...)
	}
	for _, ob := range o.OrderBy {
		dir := " ASC"
		if ob.Desc {
			dir = " DESC"
		}
		sel = sel.OrderBy(quote(ob.Column) + dir)
	}
	if o.Limit > 0 {
		sel = sel.Limit(o.Limit)
	}
	if o.Offset > 0 {
		sel = sel.Offset(o.Offset)
	}
	return sel
}
