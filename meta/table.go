// Package meta 维护映射模型的表描述与字段描述注册表
package meta

import (
	"strings"

	"udtkit/errors"
	"udtkit/validation"
)

const (
	// MaxTableNameLen 表名最大长度
	MaxTableNameLen = 19
	// MaxTableDescriptionLen 表描述最大长度
	MaxTableDescriptionLen = 30
)

// Strategy 主键生成策略
type Strategy int

const (
	Manual Strategy = iota
	RandomUnique
	Serial
)

func (s Strategy) String() string {
	switch s {
	case RandomUnique:
		return "RandomUnique"
	case Serial:
		return "Serial"
	default:
		return "Manual"
	}
}

// ParseStrategy 解析策略名称（大小写不敏感）
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToLower(s) {
	case "manual":
		return Manual, true
	case "randomunique", "random":
		return RandomUnique, true
	case "serial":
		return Serial, true
	}
	return Manual, false
}

// TableKind 表是否关联系统对象类型
type TableKind int

const (
	NoObject TableKind = iota
	MasterData
	MasterDataLines
	Document
	DocumentLines
)

func (k TableKind) String() string {
	switch k {
	case MasterData:
		return "MasterData"
	case MasterDataLines:
		return "MasterDataLines"
	case Document:
		return "Document"
	case DocumentLines:
		return "DocumentLines"
	default:
		return "NoObject"
	}
}

// Capability 模型可选能力的位集合
type Capability uint8

const (
	CapDateAudit Capability = 1 << iota
	CapUserAudit
	CapSoftDelete
)

// Has 是否包含全部指定能力
func (c Capability) Has(caps Capability) bool {
	return c&caps == caps
}

func (c Capability) String() string {
	var parts []string
	if c.Has(CapDateAudit) {
		parts = append(parts, "date_audit")
	}
	if c.Has(CapUserAudit) {
		parts = append(parts, "user_audit")
	}
	if c.Has(CapSoftDelete) {
		parts = append(parts, "soft_delete")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// TableDescriptor 映射类型对应的远端表
type TableDescriptor struct {
	Name        string
	Description string
	Strategy    Strategy
	Kind        TableKind

	// Capabilities 由注册表根据模型实现的能力接口填充
	Capabilities Capability
}

// Validate 校验表级元数据
func (t TableDescriptor) Validate() error {
	err := errors.Join(
		validation.ValidateRequired(t.Name, "表名"),
		validation.ValidateStringLength(t.Name, "表名", 0, MaxTableNameLen),
		validation.ValidateStringLength(t.Description, "表描述", 0, MaxTableDescriptionLen),
	)
	if err == nil && t.Name != "" {
		err = validation.ValidateIdentifier(t.Name, "表名")
	}
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeSchema, "表定义无效: "+t.Name)
	}
	return nil
}
