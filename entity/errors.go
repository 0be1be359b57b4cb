package entity

import "udtkit/errors"

// 主键错误，由持久化引擎转换为 false 并记录日志
var (
	ErrCodeNotSet    = errors.NewError(errors.ErrCodeKeyNotSet, "主键未设置")
	ErrAlreadyExists = errors.NewError(errors.ErrCodeAlreadyExists, "主键已存在")
	ErrItemNotFound  = errors.NewError(errors.ErrCodeItemNotFound, "记录不存在")
)

// IsKeyError 是否为主键错误
func IsKeyError(err error) bool {
	return errors.IsErrorCode(err, errors.ErrCodeKeyNotSet) ||
		errors.IsErrorCode(err, errors.ErrCodeAlreadyExists) ||
		errors.IsErrorCode(err, errors.ErrCodeItemNotFound)
}
