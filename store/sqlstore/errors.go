package sqlstore

import (
	stdErrors "errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
)

// DriverError 从驱动错误中提取存储端错误码与消息。
// Postgres 的 SQLSTATE 为纯数字时转为整数，否则为 -1；无法识别的错误码为 -1。
func DriverError(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	var liteErr *sqlite.Error
	if stdErrors.As(err, &liteErr) {
		return liteErr.Code(), liteErr.Error()
	}

	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		code, convErr := strconv.Atoi(pgErr.Code)
		if convErr != nil {
			code = -1
		}
		return code, pgErr.Message
	}

	var myErr *mysql.MySQLError
	if stdErrors.As(err, &myErr) {
		return int(myErr.Number), myErr.Message
	}

	return -1, err.Error()
}
