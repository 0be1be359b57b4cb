// Package field 实现字段元数据与字段编解码（线格式 <-> 类型值）
package field

import "fmt"

// Kind 字段种类，决定编解码行为
type Kind int

const (
	Text Kind = iota + 1
	Memo
	Boolean
	Integer
	Float
	Date
	Time
	DateTimePair
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "Text"
	case Memo:
		return "Memo"
	case Boolean:
		return "Boolean"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Date:
		return "Date"
	case Time:
		return "Time"
	case DateTimePair:
		return "DateTimePair"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FloatType 浮点字段的线格式子类型
type FloatType int

const (
	Plain FloatType = iota
	Quantity
	Price
	Rate
	Percentage
	Measurement
)

func (f FloatType) String() string {
	switch f {
	case Quantity:
		return "Quantity"
	case Price:
		return "Price"
	case Rate:
		return "Rate"
	case Percentage:
		return "Percentage"
	case Measurement:
		return "Measurement"
	default:
		return "Plain"
	}
}

// ValidValue 有效值集合中的一项（线格式值 + 显示标签）
type ValidValue struct {
	Value string `yaml:"code"`
	Label string `yaml:"name"`
}

// LinkKind 字段关联目标的类型
type LinkKind int

const (
	LinkNone LinkKind = iota
	// LinkTable 关联另一张映射表
	LinkTable
	// LinkObject 关联存储端的对象类型
	LinkObject
	// LinkObjectCode 关联原始对象类型代码
	LinkObjectCode
)

// Linkage 下拉/查找数据来源，核心层只携带不解析
type Linkage struct {
	Kind   LinkKind
	Target string
}

// IsZero 是否未设置关联
func (l Linkage) IsZero() bool {
	return l.Kind == LinkNone
}
