package errors

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"runtime"

	"udtkit/logging"
)

// WrapWithLog 包装错误并记录警告日志；logger 为 nil 时使用全局日志
func WrapWithLog(ctx context.Context, logger logging.Logger, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)
	wrapped := WrapError(err, code, msg)

	allFields := append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)),
	}, fields...)
	logging.OrGlobal(logger).Warn(ctx, msg, allFields...)

	return wrapped
}

// WrapStoreError 规范化存储层错误。
// 未找到与主键冲突保持 NOT_FOUND/ALREADY_EXISTS 语义且不记录日志；
// 其余错误包装为 STORE_ERROR 并以警告记录操作名。
func WrapStoreError(ctx context.Context, logger logging.Logger, err error, operation string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok || stdErrors.Is(err, sql.ErrNoRows) || IsUniqueViolation(err) {
		return Normalize(err)
	}

	return WrapWithLog(ctx, logger, err, ErrCodeStore,
		fmt.Sprintf("存储操作失败: %s", operation),
		append([]logging.Field{logging.String("operation", operation)}, fields...)...,
	)
}
