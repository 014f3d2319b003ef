package xmetrics

import (
	"sort"
	"time"
)

// histogramBuckets 延迟直方图的桶边界（秒）。
//
// 采用 OpenTelemetry 规范推荐的显式桶边界，全进程共享、不可修改，
// 不同函数的延迟分布因此可以直接比较和聚合。
var histogramBuckets = [...]float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1.0, 2.5, 5.0, 7.5, 10.0,
}

// HistogramBuckets 返回桶边界的副本，调用方修改返回值不影响全局策略。
func HistogramBuckets() []float64 {
	out := make([]float64, len(histogramBuckets))
	copy(out, histogramBuckets[:])
	return out
}

// BucketIndex 返回 d 落入的第一个桶（边界 >= d 秒）的下标。
// 超过最大边界时返回 len(HistogramBuckets())，即 +Inf 桶。
func BucketIndex(d time.Duration) int {
	return sort.SearchFloat64s(histogramBuckets[:], d.Seconds())
}
