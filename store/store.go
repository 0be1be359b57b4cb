// Package store 定义持久化引擎依赖的远端表存储与仓库端口
package store

import (
	"context"

	"udtkit/data/db/dialect"
	"udtkit/errors"
	"udtkit/field"
)

// 固定列名
const (
	CodeColumn = "Code"
	NameColumn = "Name"
)

// ErrNotFound 主键不存在
var ErrNotFound = errors.NewError(errors.ErrCodeNotFound, "row not found")

// Row 一行线格式数据，列名 -> 原始值
type Row map[string]any

// Code 返回行的主键文本
func (r Row) Code() string {
	return field.ParseText(r[CodeColumn], nil)
}

// Name 返回行的名称文本
func (r Row) Name() string {
	return field.ParseText(r[NameColumn], nil)
}

// Column 一个用户列的线格式值
type Column struct {
	Name  string
	Value string
}

// Values 一次插入/更新写入的内容
type Values struct {
	Code    string
	Name    string
	Columns []Column
}

// Add 追加一列
func (v *Values) Add(name, value string) {
	v.Columns = append(v.Columns, Column{Name: name, Value: value})
}

// Get 按列名取值
func (v Values) Get(name string) (string, bool) {
	for _, c := range v.Columns {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Store 远端表存储的窄 CRUD/查询面
type Store interface {
	// GetByKey 按主键取行，不存在时返回 ErrNotFound
	GetByKey(ctx context.Context, table, code string) (Row, error)
	Insert(ctx context.Context, table string, values Values) error
	// Update 按 values.Code 更新；不检查影响行数，行不存在时不报错，存在性由调用方先行确认
	Update(ctx context.Context, table string, values Values) error
	Remove(ctx context.Context, table, code string) error
	// RawQuery 执行只读查询，占位符为 ?
	RawQuery(ctx context.Context, query string, args ...any) ([]Row, error)
	// LastError 最近一次失败的存储端错误码与消息，无错误时为 (0, "")
	LastError() (int, string)
	Dialect() dialect.Dialect
}

// Repository 存储端的辅助服务
type Repository interface {
	// NextSequenceValue 表级单调序列的下一个值，原子性由实现保证
	NextSequenceValue(ctx context.Context, table string) (string, error)
	// LookupValues 下拉数据源
	LookupValues(ctx context.Context, table string) ([]field.ValidValue, error)
}

// IsNotFound 判断是否为主键不存在
func IsNotFound(err error) bool {
	return errors.IsNotFound(err)
}
