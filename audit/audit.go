// Package audit 在保存前盖审计戳并处理软删除标记
package audit

import (
	"time"

	"udtkit/entity"
)

// Apply 按实体实现的能力盖戳，是 (isUpdate, now, user) 的纯函数。
//
// 插入时创建/更新时间与用户都取当前值，active 未显式设置时为 true；
// 更新时创建信息恢复为原始快照，active 未显式设置时恢复为快照值。
func Apply(rec entity.Record, isUpdate bool, now time.Time, user string) {
	orig := rec.Original()

	if dated, ok := rec.(entity.IDateAudited); ok {
		if isUpdate {
			dated.SetCreatedAt(orig.CreatedAt)
		} else {
			dated.SetCreatedAt(now)
		}
		dated.SetUpdatedAt(now)
	}

	if signed, ok := rec.(entity.IUserAudited); ok {
		if isUpdate {
			signed.SetCreatedBy(orig.CreatedBy)
		} else {
			signed.SetCreatedBy(user)
		}
		signed.SetUpdatedBy(user)
	}

	if soft, ok := rec.(entity.ISoftDeletable); ok && !soft.ActiveTouched() {
		if isUpdate {
			soft.LoadActive(orig.Active)
		} else {
			soft.LoadActive(true)
		}
	}
}

// Capture 根据实体当前值生成原始快照
func Capture(rec entity.Record) entity.Snapshot {
	s := entity.Snapshot{Code: rec.GetCode(), Loaded: true}
	if dated, ok := rec.(entity.IDateAudited); ok {
		s.CreatedAt = dated.GetCreatedAt()
	}
	if signed, ok := rec.(entity.IUserAudited); ok {
		s.CreatedBy = signed.GetCreatedBy()
	}
	if soft, ok := rec.(entity.ISoftDeletable); ok {
		s.Active = soft.IsActive()
	}
	return s
}

// Commit 保存成功后刷新快照，并清除 active 的显式设置标记
func Commit(rec entity.Record) {
	rec.SetOriginal(Capture(rec))
	if soft, ok := rec.(entity.ISoftDeletable); ok {
		soft.LoadActive(soft.IsActive())
	}
}
