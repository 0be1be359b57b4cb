// Package reference 从 YAML 文件加载有效值目录，并作为下拉数据来源
package reference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"udtkit/field"
	"udtkit/store"
)

// Catalog 一个有效值目录
type Catalog struct {
	Name   string             `yaml:"catalog"`
	Values []field.ValidValue `yaml:"values"`
}

// LoadCatalogs 读取目录下所有 .yaml/.yml 文件；
// 未声明 catalog 时以文件名（去扩展名）为目录名。
func LoadCatalogs(dir string) (map[string]Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Catalog)
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var c Catalog
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("reference: %s: %w", e.Name(), err)
		}
		if c.Name == "" {
			c.Name = strings.TrimSuffix(e.Name(), ext)
		}
		if _, dup := out[c.Name]; dup {
			return nil, fmt.Errorf("reference: catalog %q declared twice", c.Name)
		}
		out[c.Name] = c
	}
	return out, nil
}

// Repository 已知目录直接应答，其余委托给 next
type Repository struct {
	catalogs map[string]Catalog
	next     store.Repository
}

var _ store.Repository = (*Repository)(nil)

// New 包装下游仓库；next 可为 nil
func New(catalogs map[string]Catalog, next store.Repository) *Repository {
	if catalogs == nil {
		catalogs = map[string]Catalog{}
	}
	return &Repository{catalogs: catalogs, next: next}
}

// Names 已加载的目录名
func (r *Repository) Names() []string {
	names := make([]string, 0, len(r.catalogs))
	for n := range r.catalogs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Repository) NextSequenceValue(ctx context.Context, table string) (string, error) {
	if r.next == nil {
		return "", fmt.Errorf("reference: no sequence source for %s", table)
	}
	return r.next.NextSequenceValue(ctx, table)
}

// LookupValues 目录中的值按声明顺序返回副本
func (r *Repository) LookupValues(ctx context.Context, table string) ([]field.ValidValue, error) {
	if c, ok := r.catalogs[table]; ok {
		return append([]field.ValidValue(nil), c.Values...), nil
	}
	if r.next == nil {
		return nil, fmt.Errorf("reference: unknown catalog %s", table)
	}
	return r.next.LookupValues(ctx, table)
}
