// Package sqlstore 基于 database/sql 的远端表存储与仓库实现
package sqlstore

import (
	"context"
	"sync"

	core "udtkit/data/db"
	"udtkit/data/db/dialect"
	dbsql "udtkit/data/db/sql"
	"udtkit/errors"
	"udtkit/logging"
	"udtkit/patterns/retry"
	"udtkit/store"
)

// Store 实现 store.Store 与 store.Repository
type Store struct {
	db      core.IDatabase
	sql     dbsql.ISql
	logger  logging.Logger
	retry   retry.Config
	seqName string

	mu      sync.Mutex
	errCode int
	errMsg  string
}

// Option 存储选项
type Option func(*Store)

// WithLogger 指定日志
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithRetry 序列分配冲突时的重试配置
func WithRetry(cfg retry.Config) Option {
	return func(s *Store) { s.retry = cfg }
}

// WithSequenceTable 替换序列表名
func WithSequenceTable(name string) Option {
	return func(s *Store) { s.seqName = name }
}

// New 基于数据库实例创建存储
func New(database core.IDatabase, opts ...Option) *Store {
	s := &Store{
		db:      database,
		sql:     dbsql.New(database),
		retry:   retry.DefaultConfig(),
		seqName: SequenceTable,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrGlobal(s.logger).WithFields(logging.String("component", "sqlstore"))
	return s
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Repository = (*Store)(nil)
)

func (s *Store) Dialect() dialect.Dialect { return s.sql.Dialect() }

func (s *Store) quote(name string) string { return s.sql.Dialect().QuoteIdentifier(name) }

// LastError 最近一次失败操作的驱动错误码与消息
func (s *Store) LastError() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errCode, s.errMsg
}

func (s *Store) reset() {
	s.mu.Lock()
	s.errCode, s.errMsg = 0, ""
	s.mu.Unlock()
}

// fail 记录驱动错误并规范化
func (s *Store) fail(ctx context.Context, op, table string, err error) error {
	code, msg := DriverError(err)
	s.mu.Lock()
	s.errCode, s.errMsg = code, msg
	s.mu.Unlock()
	return errors.WrapStoreError(ctx, s.logger, err, op,
		logging.Table(table), logging.Int("store_code", code), logging.String("store_message", msg))
}

// GetByKey 按主键取行
func (s *Store) GetByKey(ctx context.Context, table, code string) (store.Row, error) {
	s.reset()
	rows, err := s.sql.Select().From(table).Where(s.quote(store.CodeColumn)+" = ?", code).Limit(1).Query(ctx)
	if err != nil {
		return nil, s.fail(ctx, "get", table, err)
	}
	out, err := scanRows(rows)
	if err != nil {
		return nil, s.fail(ctx, "get", table, err)
	}
	if len(out) == 0 {
		return nil, store.ErrNotFound
	}
	return out[0], nil
}

// Insert 插入一行
func (s *Store) Insert(ctx context.Context, table string, values store.Values) error {
	s.reset()
	ins := s.sql.InsertInto(table).
		Set(store.CodeColumn, values.Code).
		Set(store.NameColumn, values.Name)
	for _, c := range values.Columns {
		ins = ins.Set(c.Name, c.Value)
	}
	if _, err := ins.Exec(ctx); err != nil {
		return s.fail(ctx, "insert", table, err)
	}
	return nil
}

// Update 按主键更新名称与用户列。
// 不依据影响行数判断存在性：MySQL 对未变化的行报告 0。
func (s *Store) Update(ctx context.Context, table string, values store.Values) error {
	s.reset()
	upd := s.sql.Update(table).Set(store.NameColumn, values.Name)
	for _, c := range values.Columns {
		upd = upd.Set(c.Name, c.Value)
	}
	upd = upd.Where(s.quote(store.CodeColumn)+" = ?", values.Code)
	if _, err := upd.Exec(ctx); err != nil {
		return s.fail(ctx, "update", table, err)
	}
	return nil
}

// Remove 物理删除一行
func (s *Store) Remove(ctx context.Context, table, code string) error {
	s.reset()
	_, err := s.sql.DeleteFrom(table).Where(s.quote(store.CodeColumn)+" = ?", code).Exec(ctx)
	if err != nil {
		return s.fail(ctx, "remove", table, err)
	}
	return nil
}

// RawQuery 执行只读查询
func (s *Store) RawQuery(ctx context.Context, query string, args ...any) ([]store.Row, error) {
	s.reset()
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, s.fail(ctx, "query", "", err)
	}
	out, err := scanRows(rows)
	if err != nil {
		return nil, s.fail(ctx, "query", "", err)
	}
	return out, nil
}

// scanRows 读出全部行，[]byte 转为 string
func scanRows(rows core.IRows) ([]store.Row, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []store.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(store.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
