package field

import (
	"context"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"udtkit/errors"
	"udtkit/logging"
	"udtkit/validation"
)

const (
	// MaxNameLen 字段线格式名称最大长度
	MaxNameLen = 50
	// MaxDescriptionLen 字段描述最大长度
	MaxDescriptionLen = 80
	// MaxTextSize Text 字段最大长度，Memo 不受限
	MaxTextSize = 254

	// ColumnPrefix 用户字段列名前缀
	ColumnPrefix = "U_"
)

// Descriptor 描述一个映射字段。由 Builder 构造，构造后不再修改。
type Descriptor struct {
	Name        string
	Description string
	Kind        Kind
	FloatType   FloatType
	Size        int
	Mandatory   bool
	Default     any
	ValidValues []ValidValue
	Link        Linkage

	// Err 构造阶段收集的元数据定义错误
	Err error

	ordinal      bool
	defaultOnce  sync.Once
	defaultValue any
}

// Columns 返回字段对应的线格式列名。DateTimePair 对应两列，其余一列。
func (d *Descriptor) Columns() []string {
	base := ColumnPrefix + d.Name
	if d.Kind != DateTimePair {
		return []string{base}
	}
	if d.ordinal {
		return []string{base + "D", base + "T"}
	}
	return []string{base + "Date", base + "Time"}
}

// WithOrdinal 返回以声明序号命名的副本，用于未显式命名的字段
func (d *Descriptor) WithOrdinal(n int) *Descriptor {
	return &Descriptor{
		Name:        strconv.Itoa(n),
		Description: d.Description,
		Kind:        d.Kind,
		FloatType:   d.FloatType,
		Size:        d.Size,
		Mandatory:   d.Mandatory,
		Default:     d.Default,
		ValidValues: d.ValidValues,
		Link:        d.Link,
		Err:         d.Err,
		ordinal:     true,
	}
}

// HasDefault 是否声明了默认值
func (d *Descriptor) HasDefault() bool {
	return d.Default != nil
}

// DefaultValue 默认值经本字段解析函数转换后的类型值，首次访问时计算
func (d *Descriptor) DefaultValue() any {
	d.defaultOnce.Do(func() {
		if d.Default == nil {
			return
		}
		if d.Kind == DateTimePair {
			d.defaultValue = toTime(d.Default)
			return
		}
		d.defaultValue, _ = d.decode(d.Default)
	})
	return d.defaultValue
}

func (d *Descriptor) decode(raw any) (any, error) {
	switch d.Kind {
	case Text, Memo:
		return ParseText(raw, nil), nil
	case Boolean:
		return ParseBool(raw)
	case Integer:
		return ParseInt(raw)
	case Float:
		return ParseFloat(raw)
	case Date:
		return ParseDate(raw)
	case Time:
		return ParseTime(raw)
	}
	return Sentinel, errors.Errorf(errors.ErrCodeUsage, "字段 %s 的种类 %s 不支持通用解析", d.Name, d.Kind)
}

// Decode 宽松解析：总是返回类型值，输入无法解析时同时返回错误。
// raw 为 nil 且存在默认值时返回默认值。
func (d *Descriptor) Decode(raw any) (any, error) {
	if d.Kind == DateTimePair {
		return Sentinel, errors.Errorf(errors.ErrCodeUsage,
			"字段 %s 为组合日期时间，请使用 ParseDatePart/ParseTimePart", d.Name)
	}
	if raw == nil && d.HasDefault() {
		return d.DefaultValue(), nil
	}
	return d.decode(raw)
}

// Parse 宽松解析，不返回错误。DateTimePair 不支持，记录用法错误并返回 Sentinel。
func (d *Descriptor) Parse(raw any) any {
	v, err := d.Decode(raw)
	if err != nil && d.Kind == DateTimePair {
		logging.GetLogger().Error(context.Background(), "combined date/time parsed generically",
			logging.String("field", d.Name), logging.Error(err))
	}
	return v
}

// ParseDatePart 解析 DateTimePair 的日期列
func (d *Descriptor) ParseDatePart(raw any) (time.Time, error) {
	return ParseDate(raw)
}

// ParseTimePart 解析 DateTimePair 的时间列
func (d *Descriptor) ParseTimePart(raw any) (time.Time, error) {
	return ParseTime(raw)
}

// DateToWire DateTimePair 日期部分的线格式
func (d *Descriptor) DateToWire(v any) string {
	return DateToWire(toTime(v))
}

// TimeToWire DateTimePair 时间部分的线格式
func (d *Descriptor) TimeToWire(v any) string {
	return TimeToWire(toTime(v))
}

// ToWire 类型值 -> 线格式文本。DateTimePair 不支持，记录用法错误并返回 ""。
func (d *Descriptor) ToWire(v any) string {
	switch d.Kind {
	case Text, Memo:
		if v == nil {
			return ""
		}
		return ParseText(v, nil)
	case Boolean:
		return BoolToWire(v)
	case Integer:
		return IntToWire(v)
	case Float:
		return FloatToWire(v)
	case Date:
		return DateToWire(toTime(v))
	case Time:
		return TimeToWire(toTime(v))
	}
	logging.GetLogger().Error(context.Background(), "combined date/time encoded generically",
		logging.String("field", d.Name), logging.String("kind", d.Kind.String()))
	return ""
}

// IsNull 判断类型值是否为空
func (d *Descriptor) IsNull(v any) bool {
	if v == nil {
		return true
	}
	switch d.Kind {
	case Text, Memo:
		s, ok := v.(string)
		return ok && s == ""
	case Date, DateTimePair:
		return IsUnsetDate(toTime(v))
	}
	return false
}

func (d *Descriptor) allows(wire string) bool {
	if len(d.ValidValues) == 0 {
		return true
	}
	values := make([]string, len(d.ValidValues))
	for i, vv := range d.ValidValues {
		values[i] = vv.Value
	}
	return validation.ValidateEnum(wire, d.Name, values) == nil
}

// Validate 字段级校验。Boolean/Date/Time 在字段级总是有效，必填校验由实体层负责。
func (d *Descriptor) Validate(v any) bool {
	switch d.Kind {
	case Text, Memo:
		if d.IsNull(v) {
			return !d.Mandatory
		}
		s := ParseText(v, nil)
		if d.Kind == Text && d.Size > 0 && utf8.RuneCountInString(s) > d.Size {
			return false
		}
		return d.allows(s)
	case Integer, Float:
		if v == nil {
			return !d.Mandatory
		}
		return d.allows(d.ToWire(v))
	}
	return true
}

// Label 返回线格式值在有效值集合中的标签
func (d *Descriptor) Label(wire string) (string, bool) {
	for _, vv := range d.ValidValues {
		if vv.Value == wire {
			return vv.Label, true
		}
	}
	return "", false
}

// Builder 字段描述构造器
type Builder struct {
	desc *Descriptor
}

func newBuilder(kind Kind, name, description string, size int) *Builder {
	return &Builder{desc: &Descriptor{
		Name:        name,
		Description: description,
		Kind:        kind,
		Size:        size,
	}}
}

// TextField 文本字段，默认长度 50
func TextField(name, description string) *Builder {
	return newBuilder(Text, name, description, 50)
}

// MemoField 不限长度的文本字段
func MemoField(name, description string) *Builder {
	return newBuilder(Memo, name, description, 0)
}

// BoolField 布尔字段，线格式 "Y"/"N"
func BoolField(name, description string) *Builder {
	return newBuilder(Boolean, name, description, 1)
}

// IntField 整数字段
func IntField(name, description string) *Builder {
	return newBuilder(Integer, name, description, 11)
}

// FloatField 带子类型的浮点字段
func FloatField(name, description string, sub FloatType) *Builder {
	b := newBuilder(Float, name, description, 0)
	b.desc.FloatType = sub
	return b
}

// DateField 日期字段，线格式 "yyyyMMdd"
func DateField(name, description string) *Builder {
	return newBuilder(Date, name, description, 8)
}

// TimeField 时间字段，线格式 "HHmm"
func TimeField(name, description string) *Builder {
	return newBuilder(Time, name, description, 4)
}

// DateTimeField 组合日期时间字段，对应两列
func DateTimeField(name, description string) *Builder {
	return newBuilder(DateTimePair, name, description, 0)
}

// Size 设置最大长度
func (b *Builder) Size(n int) *Builder {
	b.desc.Size = n
	return b
}

// Mandatory 写入前必须有值（可为默认值）
func (b *Builder) Mandatory() *Builder {
	b.desc.Mandatory = true
	return b
}

// Default 设置默认值，首次使用时经字段解析函数转换
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// Values 设置有效值集合
func (b *Builder) Values(values ...ValidValue) *Builder {
	b.desc.ValidValues = append(b.desc.ValidValues, values...)
	return b
}

// Value 追加一个有效值
func (b *Builder) Value(wire, label string) *Builder {
	return b.Values(ValidValue{Value: wire, Label: label})
}

// LinkTable 关联另一张映射表
func (b *Builder) LinkTable(table string) *Builder {
	b.desc.Link = Linkage{Kind: LinkTable, Target: table}
	return b
}

// LinkObject 关联存储端对象类型
func (b *Builder) LinkObject(object string) *Builder {
	b.desc.Link = Linkage{Kind: LinkObject, Target: object}
	return b
}

// LinkObjectCode 关联原始对象类型代码
func (b *Builder) LinkObjectCode(code string) *Builder {
	b.desc.Link = Linkage{Kind: LinkObjectCode, Target: code}
	return b
}

// Descriptor 完成构造并校验元数据，错误记录在 Descriptor.Err
func (b *Builder) Descriptor() *Descriptor {
	d := b.desc
	var errs []error
	if d.Name != "" {
		errs = append(errs,
			validation.ValidateStringLength(d.Name, "字段名称", 1, MaxNameLen),
			validation.ValidateIdentifier(d.Name, "字段名称"))
	}
	errs = append(errs, validation.ValidateStringLength(d.Description, "字段描述", 0, MaxDescriptionLen))
	if d.Kind == Text {
		errs = append(errs, validation.ValidateIntRange(d.Size, "字段长度", 1, MaxTextSize))
	}
	if err := errors.Join(errs...); err != nil {
		d.Err = errors.WrapError(err, errors.ErrCodeSchema, "字段定义无效: "+d.Name)
	}
	return d
}
