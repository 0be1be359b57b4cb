package errors

import (
	"database/sql"
	stdErrors "errors"
	"strings"
)

// Normalize 将存储驱动返回的错误规范化为 AppError。
//
// 已经是 IError 的错误原样返回；未识别的错误包装为 STORE_ERROR。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}

	if stdErrors.Is(err, sql.ErrNoRows) {
		return WrapError(err, ErrCodeNotFound, "记录不存在")
	}

	if IsUniqueViolation(err) {
		return WrapError(err, ErrCodeAlreadyExists, "主键冲突")
	}

	return WrapError(err, ErrCodeStore, "存储错误")
}

// IsUniqueViolation 按常见驱动的错误文本识别唯一约束冲突
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "sqlstate 23505")
}
