package engine

import (
	"context"

	"udtkit/errors"
	"udtkit/field"
	"udtkit/logging"
)

// Lookup 字段的下拉数据：有效值集合直接返回，否则按关联目标向仓库查询
func (e *Engine[T, PT]) Lookup(ctx context.Context, fieldName string) ([]field.ValidValue, error) {
	b, ok := e.schema.Field(fieldName)
	if !ok {
		return nil, errors.Errorf(errors.ErrCodeInvalidInput, "%s: 字段 %s 不存在", e.schema.Table.Name, fieldName)
	}
	d := b.Field
	if len(d.ValidValues) > 0 {
		return d.ValidValues, nil
	}

	switch d.Link.Kind {
	case field.LinkNone:
		return nil, nil
	case field.LinkTable:
		if _, registered := e.registry.TypeForTable(d.Link.Target); !registered {
			e.logger.Debug(ctx, "linked table not registered",
				logging.String("field", d.Name), logging.String("target", d.Link.Target))
		}
	}

	if e.repo == nil {
		return nil, errors.Errorf(errors.ErrCodeUsage, "%s: 未配置仓库，无法查询 %s", e.schema.Table.Name, d.Link.Target)
	}
	values, err := e.repo.LookupValues(ctx, d.Link.Target)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeStore, "查询下拉数据失败: "+d.Link.Target)
	}
	return values, nil
}
