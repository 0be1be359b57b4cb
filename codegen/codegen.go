// Package codegen 按表的主键策略为实体分配主键
package codegen

import (
	"context"
	"fmt"

	"udtkit/entity"
	"udtkit/errors"
	"udtkit/meta"
)

// Sequencer 远端存储提供的表级序列，原子性由实现方保证
type Sequencer interface {
	NextSequenceValue(ctx context.Context, table string) (string, error)
}

// Exists 查询主键是否已存在
type Exists func(ctx context.Context, code string) (bool, error)

// Assignment 记录本次分配改动了什么，失败时据此回滚
type Assignment struct {
	Generated     bool
	NameDefaulted bool
}

// Rollback 清除生成的主键与默认名称，便于重试
func (a Assignment) Rollback(rec entity.Record) {
	if a.Generated {
		rec.SetCode("")
	}
	if a.NameDefaulted {
		rec.SetName("")
	}
}

// Generator 主键生成器
type Generator struct {
	random Source
	seq    Sequencer
}

// New 创建主键生成器；random 为 nil 时使用 UUID
func New(random Source, seq Sequencer) *Generator {
	if random == nil {
		random = UUIDSource{}
	}
	return &Generator{random: random, seq: seq}
}

// Assign 为新实体分配主键并检查是否已存在。
//
// Manual 要求调用方已设置主键；RandomUnique/Serial 在主键为空时生成。
// 分配后名称为空则默认为主键。
func (g *Generator) Assign(ctx context.Context, table meta.TableDescriptor, rec entity.Record, exists Exists) (Assignment, error) {
	var a Assignment
	code := rec.GetCode()

	switch table.Strategy {
	case meta.Manual:
		if code == "" {
			return a, errors.WrapError(entity.ErrCodeNotSet, errors.ErrCodeKeyNotSet,
				fmt.Sprintf("%s: 手动主键策略需要先设置主键", table.Name))
		}
	case meta.RandomUnique:
		if code == "" {
			generated, err := g.random.NewCode()
			if err != nil {
				return a, errors.WrapError(err, errors.ErrCodeInternal, table.Name+": 生成随机主键失败")
			}
			code, a.Generated = generated, true
		}
	case meta.Serial:
		if code == "" {
			if g.seq == nil {
				return a, errors.Errorf(errors.ErrCodeUsage, "%s: 未配置序列", table.Name)
			}
			next, err := g.seq.NextSequenceValue(ctx, table.Name)
			if err != nil {
				return a, errors.WrapError(err, errors.ErrCodeSequence, table.Name+": 获取序列值失败")
			}
			code, a.Generated = next, true
		}
	}

	rec.SetCode(code)
	if rec.GetName() == "" {
		rec.SetName(code)
		a.NameDefaulted = true
	}

	if exists != nil {
		found, err := exists(ctx, code)
		if err != nil {
			return a, err
		}
		if found {
			return a, errors.WrapError(entity.ErrAlreadyExists, errors.ErrCodeAlreadyExists,
				fmt.Sprintf("%s: 主键 %s 已存在", table.Name, code))
		}
	}
	return a, nil
}
