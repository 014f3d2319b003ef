package xslo

import (
	"fmt"
	"slices"
)

// Registry 是按名称索引的目标集合。
//
// 在启动阶段一次性构建，之后只读，可并发访问。
type Registry struct {
	objectives map[string]Objective
	names      []string
}

// NewRegistry 校验并登记 objectives。任何目标非法或名称重复时返回错误。
func NewRegistry(objectives ...Objective) (*Registry, error) {
	r := &Registry{
		objectives: make(map[string]Objective, len(objectives)),
		names:      make([]string, 0, len(objectives)),
	}
	for _, o := range objectives {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.objectives[o.name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, o.name)
		}
		r.objectives[o.name] = o
		r.names = append(r.names, o.name)
	}
	slices.Sort(r.names)
	return r, nil
}

// Lookup 按名称查找目标。nil Registry 安全返回 false。
func (r *Registry) Lookup(name string) (Objective, bool) {
	if r == nil {
		return Objective{}, false
	}
	o, ok := r.objectives[name]
	return o, ok
}

// Names 返回按字典序排列的目标名称副本。
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.names)
}

// Len 返回目标数量。
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}
