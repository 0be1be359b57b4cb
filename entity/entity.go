// Package entity 定义映射实体的基础字段、原始快照与可选能力。
//
// 模型通过嵌入 Base 获得主键/名称与快照，再按需嵌入 DateAudit、
// UserAudit、SoftDelete 声明审计与软删除能力。
package entity

import "time"

// Snapshot 加载或最近一次保存时的原始值，用于识别改名并保护审计字段
type Snapshot struct {
	Code      string
	Active    bool
	CreatedAt time.Time
	CreatedBy string

	// Loaded 快照是否来自存储（新建实例为 false）
	Loaded bool
}

// Record 所有映射实体共有的行为，由 *Base 实现
type Record interface {
	GetCode() string
	SetCode(code string)
	GetName() string
	SetName(name string)
	Original() Snapshot
	SetOriginal(s Snapshot)
	Err() error
	SetErr(err error)
}

// Base 映射实体的基础字段（用于嵌入）
type Base struct {
	Code string
	Name string

	original Snapshot
	err      error
}

func (b *Base) GetCode() string     { return b.Code }
func (b *Base) SetCode(code string) { b.Code = code }
func (b *Base) GetName() string     { return b.Name }
func (b *Base) SetName(name string) { b.Name = name }

// Original 返回原始快照
func (b *Base) Original() Snapshot { return b.original }

// SetOriginal 由持久化引擎在加载/保存成功后调用
func (b *Base) SetOriginal(s Snapshot) { b.original = s }

// Err 最近一次失败操作的原因，成功操作会清空
func (b *Base) Err() error { return b.err }

func (b *Base) SetErr(err error) { b.err = err }

// IDateAudited 携带创建/更新时间
type IDateAudited interface {
	GetCreatedAt() time.Time
	SetCreatedAt(at time.Time)
	GetUpdatedAt() time.Time
	SetUpdatedAt(at time.Time)
}

// IUserAudited 携带创建/更新用户
type IUserAudited interface {
	GetCreatedBy() string
	SetCreatedBy(by string)
	GetUpdatedBy() string
	SetUpdatedBy(by string)
}

// ISoftDeletable 以 active 标记代替物理删除
type ISoftDeletable interface {
	IsActive() bool
	// SetActive 调用方显式设置，保存时保留该值
	SetActive(active bool)
	// LoadActive 从存储或快照回填，不视为显式设置
	LoadActive(active bool)
	ActiveTouched() bool
}

// DateAudit 创建/更新时间（用于嵌入）
type DateAudit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *DateAudit) GetCreatedAt() time.Time   { return a.CreatedAt }
func (a *DateAudit) SetCreatedAt(at time.Time) { a.CreatedAt = at }
func (a *DateAudit) GetUpdatedAt() time.Time   { return a.UpdatedAt }
func (a *DateAudit) SetUpdatedAt(at time.Time) { a.UpdatedAt = at }

// UserAudit 创建/更新用户（用于嵌入）
type UserAudit struct {
	CreatedBy string
	UpdatedBy string
}

func (a *UserAudit) GetCreatedBy() string   { return a.CreatedBy }
func (a *UserAudit) SetCreatedBy(by string) { a.CreatedBy = by }
func (a *UserAudit) GetUpdatedBy() string   { return a.UpdatedBy }
func (a *UserAudit) SetUpdatedBy(by string) { a.UpdatedBy = by }

// SoftDelete 软删除标记（用于嵌入）
type SoftDelete struct {
	active  bool
	touched bool
}

func (s *SoftDelete) IsActive() bool { return s.active }

func (s *SoftDelete) SetActive(active bool) {
	s.active = active
	s.touched = true
}

func (s *SoftDelete) LoadActive(active bool) {
	s.active = active
	s.touched = false
}

func (s *SoftDelete) ActiveTouched() bool { return s.touched }
