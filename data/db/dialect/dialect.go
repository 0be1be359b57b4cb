// Package dialect 描述各数据库方言在本层用到的差异
package dialect

import (
	"strconv"
	"strings"

	core "udtkit/data/db"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// Dialect 表示当前数据库的方言能力
type Dialect struct {
	name Name
}

// New 根据字符串构造方言（大小写不敏感）
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return Dialect{name: NameMySQL}
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	case "postgres", "postgresql", "pgx":
		return Dialect{name: NamePostgres}
	default:
		return Dialect{name: NameUnknown}
	}
}

// FromDatabase 从 IDatabase 实例推断方言
func FromDatabase(db core.IDatabase) Dialect {
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{name: NameUnknown}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// DriverName 返回 database/sql 注册的驱动名
func (d Dialect) DriverName() string {
	switch d.name {
	case NamePostgres:
		return "pgx"
	case NameMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// QuoteIdentifier 按方言给标识符加引号，带点的限定名逐段处理。
// MySQL 使用反引号，Postgres/SQLite 使用双引号，未知方言原样返回。
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		switch d.name {
		case NameMySQL:
			parts[i] = "`" + p + "`"
		case NameSQLite, NamePostgres:
			parts[i] = `"` + p + `"`
		}
	}
	return strings.Join(parts, ".")
}

// Rebind 将占位符 ? 转换为方言形式，目前只有 Postgres 需要 $n。
// 简单扫描，不识别字符串字面量中的 ?。
func (d Dialect) Rebind(query string) string {
	if d.name != NamePostgres || query == "" {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	argIndex := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(argIndex))
			argIndex++
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// Length 返回字符长度表达式
func (d Dialect) Length(expr string) string {
	if d.name == NameMySQL {
		return "CHAR_LENGTH(" + expr + ")"
	}
	return "LENGTH(" + expr + ")"
}

// LeftPad 返回把 expr 左侧补零到 width 个字符的表达式。
// 长于 width 的值保持不变。
func (d Dialect) LeftPad(expr string, width int) string {
	w := strconv.Itoa(width)
	switch d.name {
	case NameMySQL, NamePostgres:
		return "CASE WHEN " + d.Length(expr) + " >= " + w + " THEN " + expr +
			" ELSE LPAD(" + expr + ", " + w + ", '0') END"
	default:
		zeros := "'" + strings.Repeat("0", width) + "'"
		return "CASE WHEN " + d.Length(expr) + " >= " + w + " THEN " + expr +
			" ELSE substr(" + zeros + " || " + expr + ", -" + w + ") END"
	}
}

// TextType 返回 DDL 中文本列的类型；size <= 0 表示不限长度
func (d Dialect) TextType(size int) string {
	switch {
	case d.name == NameSQLite:
		return "TEXT"
	case size <= 0:
		if d.name == NameMySQL {
			return "LONGTEXT"
		}
		return "TEXT"
	default:
		return "VARCHAR(" + strconv.Itoa(size) + ")"
	}
}

// IsUniqueViolation 按错误文本判断唯一键/主键冲突
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameMySQL:
		return strings.Contains(msg, "duplicate entry") ||
			strings.Contains(msg, "duplicate key")
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	default:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}

// IsAlreadyExists 判断 DDL 错误是否为对象已存在
func (d Dialect) IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
