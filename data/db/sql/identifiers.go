package sql

import (
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// checkIdentifier 只允许 ASCII 字母、数字、下划线及点分限定名
func checkIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("sql: unsafe %s name %q", kind, name)
	}
	return nil
}

// quote 校验并加引号
func quote(d interface{ QuoteIdentifier(string) string }, kind, name string) (string, error) {
	if err := checkIdentifier(kind, name); err != nil {
		return "", err
	}
	return d.QuoteIdentifier(name), nil
}
