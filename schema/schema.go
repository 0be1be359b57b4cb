// Package schema 为映射表生成建表语句。
// 只创建不存在的表，不做迁移。
package schema

import (
	"context"
	"strings"

	core "udtkit/data/db"
	"udtkit/data/db/dialect"
	"udtkit/field"
	"udtkit/logging"
	"udtkit/meta"
	"udtkit/store"
	"udtkit/store/sqlstore"
)

// 固定列宽
const (
	CodeSize = 50
	NameSize = 100
)

// columnSize 线格式列宽；所有用户列都以文本存储
func columnSize(d *field.Descriptor) int {
	switch d.Kind {
	case field.Memo:
		return 0
	case field.Text:
		return d.Size
	case field.Boolean:
		return 1
	case field.Date:
		return 8
	case field.Time:
		return 4
	case field.Integer:
		return 20
	default:
		return 32
	}
}

// Table 生成一张映射表的 CREATE TABLE 语句
func Table(d dialect.Dialect, t meta.TableSchema) string {
	q := d.QuoteIdentifier
	cols := []string{
		q(store.CodeColumn) + " " + d.TextType(CodeSize) + " NOT NULL PRIMARY KEY",
		q(store.NameColumn) + " " + d.TextType(NameSize),
	}
	for _, f := range t.Fields {
		if f.Kind == field.DateTimePair {
			names := f.Columns()
			cols = append(cols,
				q(names[0])+" "+d.TextType(8),
				q(names[1])+" "+d.TextType(4))
			continue
		}
		cols = append(cols, q(f.Columns()[0])+" "+d.TextType(columnSize(f)))
	}
	return "CREATE TABLE IF NOT EXISTS " + q(t.Table.Name) + " (\n  " +
		strings.Join(cols, ",\n  ") + "\n)"
}

// SequenceTable 生成 Serial 策略使用的序列表
func SequenceTable(d dialect.Dialect) string {
	q := d.QuoteIdentifier
	valueType := "BIGINT"
	if d.Name() == dialect.NameSQLite {
		valueType = "INTEGER"
	}
	return "CREATE TABLE IF NOT EXISTS " + q(sqlstore.SequenceTable) + " (\n  " +
		q(sqlstore.SequenceTableColumn) + " " + d.TextType(meta.MaxTableNameLen) + " NOT NULL PRIMARY KEY,\n  " +
		q(sqlstore.SequenceValueColumn) + " " + valueType + " NOT NULL\n)"
}

// Generate 按顺序生成所有表的语句，序列表在最后
func Generate(d dialect.Dialect, tables ...meta.TableSchema) []string {
	stmts := make([]string, 0, len(tables)+1)
	for _, t := range tables {
		stmts = append(stmts, Table(d, t))
	}
	return append(stmts, SequenceTable(d))
}

// Apply 执行建表语句，对象已存在的错误只记录日志
func Apply(ctx context.Context, database core.IDatabase, stmts []string, logger logging.Logger) error {
	logger = logging.OrGlobal(logger)
	d := dialect.FromDatabase(database)
	for _, stmt := range stmts {
		if _, err := database.Exec(ctx, stmt); err != nil {
			if d.IsAlreadyExists(err) {
				logger.Info(ctx, "schema object already exists", logging.Error(err))
				continue
			}
			return err
		}
	}
	return nil
}
