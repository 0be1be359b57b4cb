package sql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	core "udtkit/data/db"
	"udtkit/data/db/dialect"
)

type insertBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table   string
	columns []string
	values  []any
}

func (b *insertBuilder) Set(col string, val any) IInsertBuilder {
	b.columns = append(b.columns, col)
	b.values = append(b.values, val)
	return b
}

func (b *insertBuilder) Build() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, errors.New("sql: insert without columns")
	}
	table, err := quote(b.dialect, "table", b.table)
	if err != nil {
		return "", nil, err
	}
	cols := make([]string, len(b.columns))
	for i, c := range b.columns {
		if cols[i], err = quote(b.dialect, "column", c); err != nil {
			return "", nil, err
		}
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	sb.WriteString(")")

	args := make([]any, len(b.values))
	copy(args, b.values)
	return sb.String(), args, nil
}

func (b *insertBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.db.Exec(ctx, q, args...)
}
