// Package sql 提供远端表存储使用的轻量 SQL 构建器。
// 标识符按方言加引号，占位符统一写 ?，由 IDatabase 在执行时重绑定。
package sql

import (
	"context"
	"database/sql"

	core "udtkit/data/db"
	"udtkit/data/db/dialect"
)

// ISql 构建器入口
type ISql interface {
	Dialect() dialect.Dialect
	Select(exprs ...string) ISelectBuilder
	InsertInto(table string) IInsertBuilder
	Update(table string) IUpdateBuilder
	DeleteFrom(table string) IDeleteBuilder
}

// ISelectBuilder SELECT 构建器；exprs/条件/排序均为原样 SQL 片段
type ISelectBuilder interface {
	From(table string) ISelectBuilder
	Where(cond string, args ...any) ISelectBuilder
	OrderBy(exprs ...string) ISelectBuilder
	Limit(n int) ISelectBuilder
	Offset(n int) ISelectBuilder
	Build() (string, []any, error)
	Query(ctx context.Context) (core.IRows, error)
	QueryRow(ctx context.Context) (core.IRow, error)
}

// IInsertBuilder 单行 INSERT 构建器
type IInsertBuilder interface {
	Set(col string, val any) IInsertBuilder
	Build() (string, []any, error)
	Exec(ctx context.Context) (sql.Result, error)
}

// IUpdateBuilder UPDATE 构建器
type IUpdateBuilder interface {
	Set(col string, val any) IUpdateBuilder
	Where(cond string, args ...any) IUpdateBuilder
	Build() (string, []any, error)
	Exec(ctx context.Context) (sql.Result, error)
}

// IDeleteBuilder DELETE 构建器，要求至少一个条件
type IDeleteBuilder interface {
	Where(cond string, args ...any) IDeleteBuilder
	Build() (string, []any, error)
	Exec(ctx context.Context) (sql.Result, error)
}

type sqlImpl struct {
	db      core.IDatabase
	dialect dialect.Dialect
}

// New 基于数据库实例创建构建器入口，方言从实例推断
func New(db core.IDatabase) ISql {
	return &sqlImpl{db: db, dialect: dialect.FromDatabase(db)}
}

func (s *sqlImpl) Dialect() dialect.Dialect { return s.dialect }

func (s *sqlImpl) Select(exprs ...string) ISelectBuilder {
	return &selectBuilder{db: s.db, dialect: s.dialect, exprs: exprs}
}

func (s *sqlImpl) InsertInto(table string) IInsertBuilder {
	return &insertBuilder{db: s.db, dialect: s.dialect, table: table}
}

func (s *sqlImpl) Update(table string) IUpdateBuilder {
	return &updateBuilder{db: s.db, dialect: s.dialect, table: table}
}

func (s *sqlImpl) DeleteFrom(table string) IDeleteBuilder {
	return &deleteBuilder{db: s.db, dialect: s.dialect, table: table}
}

// ForDialect 只用于 Build 的构建器入口，不绑定连接
func ForDialect(d dialect.Dialect) ISql {
	return &sqlImpl{dialect: d}
}
