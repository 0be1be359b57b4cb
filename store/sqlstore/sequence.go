package sqlstore

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strconv"

	core "udtkit/data/db"
	dbsql "udtkit/data/db/sql"
	"udtkit/errors"
	"udtkit/field"
	"udtkit/logging"
	"udtkit/patterns/retry"
	"udtkit/store"
)

// 序列表
const (
	SequenceTable       = "UDT_SEQUENCE"
	SequenceTableColumn = "TableName"
	SequenceValueColumn = "LastValue"
)

// NextSequenceValue 在事务中递增表的序列。
// 先 UPDATE 获取行锁；序列行不存在时以表中最大数字主键为起点插入，并发插入冲突时重试。
func (s *Store) NextSequenceValue(ctx context.Context, table string) (string, error) {
	var next int64
	cfg := s.retry
	cfg.Retryable = errors.IsUniqueViolation

	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		return core.WithTx(ctx, s.db, func(tx core.ITransaction) error {
			v, err := s.increment(ctx, tx, table)
			if err != nil {
				return err
			}
			next = v
			return nil
		})
	}, cfg)
	if err != nil {
		_ = s.fail(ctx, "sequence", table, err)
		return "", errors.WrapError(err, errors.ErrCodeSequence, "sequence allocation failed: "+table)
	}
	s.logger.Debug(ctx, "sequence allocated", logging.Table(table), logging.Int64("value", next))
	return strconv.FormatInt(next, 10), nil
}

func (s *Store) increment(ctx context.Context, tx core.ITransaction, table string) (int64, error) {
	q := dbsql.New(tx)
	d := q.Dialect()
	where := d.QuoteIdentifier(SequenceTableColumn) + " = ?"

	// LastValue = LastValue + 1 不能通过 Set 表达，直接拼接
	col := d.QuoteIdentifier(SequenceValueColumn)
	stmt := "UPDATE " + d.QuoteIdentifier(s.seqName) + " SET " + col + " = " + col + " + 1 WHERE " + where
	result, err := tx.Exec(ctx, stmt, table)
	if err != nil {
		return 0, err
	}
	if n, _ := result.RowsAffected(); n > 0 {
		row, err := q.Select(col).From(s.seqName).Where(where, table).QueryRow(ctx)
		if err != nil {
			return 0, err
		}
		var v int64
		if err := row.Scan(&v); err != nil {
			return 0, err
		}
		return v, nil
	}

	seed, err := maxNumericCode(ctx, q, table)
	if err != nil {
		return 0, err
	}
	next := seed + 1
	_, err = q.InsertInto(s.seqName).
		Set(SequenceTableColumn, table).
		Set(SequenceValueColumn, next).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// maxNumericCode 表中可解析为整数的最大主键，无则为 0
func maxNumericCode(ctx context.Context, q dbsql.ISql, table string) (int64, error) {
	rows, err := q.Select(q.Dialect().QuoteIdentifier(store.CodeColumn)).From(table).Query(ctx)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var highest int64
	for rows.Next() {
		var code sql.NullString
		if err := rows.Scan(&code); err != nil {
			return 0, err
		}
		if n, err := strconv.ParseInt(code.String, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return highest, rows.Err()
}

// LookupValues 以 Code/Name 列作为下拉数据
func (s *Store) LookupValues(ctx context.Context, table string) ([]field.ValidValue, error) {
	code, name := s.quote(store.CodeColumn), s.quote(store.NameColumn)
	rows, err := s.sql.Select(code, name).From(table).OrderBy(code).Query(ctx)
	if err != nil {
		return nil, s.fail(ctx, "lookup", table, err)
	}
	defer rows.Close()

	var out []field.ValidValue
	for rows.Next() {
		var c, n sql.NullString
		if err := rows.Scan(&c, &n); err != nil {
			return nil, s.fail(ctx, "lookup", table, err)
		}
		out = append(out, field.ValidValue{Value: c.String, Label: n.String})
	}
	if err := rows.Err(); err != nil && !stdErrors.Is(err, sql.ErrNoRows) {
		return nil, s.fail(ctx, "lookup", table, err)
	}
	return out, nil
}

// MaxSerial 表中最大的数字主键，可作为其他序列实现的起点
func (s *Store) MaxSerial(ctx context.Context, table string) (int64, error) {
	v, err := maxNumericCode(ctx, s.sql, table)
	if err != nil {
		return 0, s.fail(ctx, "max_serial", table, err)
	}
	return v, nil
}
