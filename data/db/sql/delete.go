package sql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	core "udtkit/data/db"
	"udtkit/data/db/dialect"
)

type deleteBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table string
	where []string
	args  []any
}

func (b *deleteBuilder) Where(cond string, args ...any) IDeleteBuilder {
	if cond != "" {
		b.where = append(b.where, cond)
		b.args = append(b.args, args...)
	}
	return b
}

func (b *deleteBuilder) Build() (string, []any, error) {
	if len(b.where) == 0 {
		return "", nil, errors.New("sql: delete without condition")
	}
	table, err := quote(b.dialect, "table", b.table)
	if err != nil {
		return "", nil, err
	}
	q := "DELETE FROM " + table + " WHERE " + strings.Join(b.where, " AND ")
	args := make([]any, len(b.args))
	copy(args, b.args)
	return q, args, nil
}

func (b *deleteBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.db.Exec(ctx, q, args...)
}
