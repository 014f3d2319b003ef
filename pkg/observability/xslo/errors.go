package xslo

import "errors"

// 目标定义相关错误。均在定义期（构造/加载配置）返回，不会出现在调用热路径上。
var (
	// ErrEmptyName 表示目标名称为空。
	ErrEmptyName = errors.New("xslo: empty objective name")
	// ErrInvalidPercentile 表示百分位不在支持的集合内。
	ErrInvalidPercentile = errors.New("xslo: invalid percentile")
	// ErrInvalidLatency 表示延迟阈值不在支持的集合内。
	ErrInvalidLatency = errors.New("xslo: invalid latency threshold")
	// ErrNoTarget 表示目标既没有成功率也没有延迟要求。
	ErrNoTarget = errors.New("xslo: objective has no target")
	// ErrDuplicateName 表示注册表中存在同名目标。
	ErrDuplicateName = errors.New("xslo: duplicate objective name")
)
