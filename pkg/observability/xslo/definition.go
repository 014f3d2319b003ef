package xslo

import "fmt"

// Definition 是目标的配置文件表示，配合 xconf（koanf）反序列化。
//
// YAML 示例：
//
//	objectives:
//	  - name: api
//	    success_rate: "99.9"
//	    latency:
//	      threshold: 250ms
//	      percentile: "99"
type Definition struct {
	Name        string             `koanf:"name" json:"name"`
	SuccessRate string             `koanf:"success_rate" json:"success_rate"`
	Latency     *LatencyDefinition `koanf:"latency" json:"latency"`
}

// LatencyDefinition 是延迟要求的配置表示。
type LatencyDefinition struct {
	Threshold  string `koanf:"threshold" json:"threshold"`
	Percentile string `koanf:"percentile" json:"percentile"`
}

// Objective 将配置转换为已校验的 Objective。
func (d Definition) Objective() (Objective, error) {
	o := New(d.Name)
	if d.SuccessRate != "" {
		p, err := ParsePercentile(d.SuccessRate)
		if err != nil {
			return Objective{}, fmt.Errorf("objective %q: %w", d.Name, err)
		}
		o = o.SuccessRate(p)
	}
	if d.Latency != nil {
		threshold, err := ParseLatency(d.Latency.Threshold)
		if err != nil {
			return Objective{}, fmt.Errorf("objective %q: %w", d.Name, err)
		}
		p, err := ParsePercentile(d.Latency.Percentile)
		if err != nil {
			return Objective{}, fmt.Errorf("objective %q: %w", d.Name, err)
		}
		o = o.Latency(threshold, p)
	}
	if err := o.Validate(); err != nil {
		return Objective{}, err
	}
	return o, nil
}

// RegistryFromDefinitions 将一组配置转换为 Registry。
func RegistryFromDefinitions(defs []Definition) (*Registry, error) {
	objectives := make([]Objective, 0, len(defs))
	for _, d := range defs {
		o, err := d.Objective()
		if err != nil {
			return nil, err
		}
		objectives = append(objectives, o)
	}
	return NewRegistry(objectives...)
}
