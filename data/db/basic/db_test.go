package basic

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "udtkit/data/db"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := Open(core.DBConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "basic.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_SQLite(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	assert.Equal(t, "sqlite", db.GetDialectName())
	require.NoError(t, db.Ping(ctx))

	_, err := db.Exec(ctx, `CREATE TABLE t (Code TEXT PRIMARY KEY, Name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO t (Code, Name) VALUES (?, ?)`, "1", "one")
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRow(ctx, `SELECT Name FROM t WHERE Code = ?`, "1").Scan(&name))
	assert.Equal(t, "one", name)

	rows, err := db.Query(ctx, `SELECT Code, Name FROM t`)
	require.NoError(t, err)
	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"Code", "Name"}, cols)
	require.NoError(t, rows.Close())
}

// TestWithTx 出错回滚，成功提交
func TestWithTx(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	_, err := db.Exec(ctx, `CREATE TABLE t (Code TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = core.WithTx(ctx, db, func(tx core.ITransaction) error {
		_, err := tx.Exec(ctx, `INSERT INTO t (Code) VALUES (?)`, "rolled-back")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = core.WithTx(ctx, db, func(tx core.ITransaction) error {
		_, nested := tx.Begin(ctx)
		assert.Error(t, nested)
		_, err := tx.Exec(ctx, `INSERT INTO t (Code) VALUES (?)`, "kept")
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_BadDriverTarget(t *testing.T) {
	_, err := Open(core.DBConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "missing", "dir", "x.db")})
	assert.Error(t, err)
}
