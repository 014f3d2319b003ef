package xmetrics

import (
	"context"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// memoryShards 分片数，必须是 2 的幂。
const memoryShards = 32

// MemoryTracker 是进程内的参考 Tracker 实现，用于测试、调试和命令行展示。
//
// 序列按 LabelSet 指纹分片存放：每个分片一把锁只保护"查找/创建序列"，
// 序列本身的计数全部使用原子操作，不相关的标签集之间不存在全局锁。
// 直方图按累计语义记录：一次观测会使所有边界 >= 该值的桶加一。
type MemoryTracker struct {
	counters   seriesMap[counterSeries]
	histograms seriesMap[histogramSeries]
	gauges     seriesMap[gaugeSeries]
}

var _ Tracker = (*MemoryTracker)(nil)

// NewMemoryTracker 创建空的 MemoryTracker。
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		counters:   newSeriesMap(func() *counterSeries { return &counterSeries{} }),
		histograms: newSeriesMap(newHistogramSeries),
		gauges:     newSeriesMap(func() *gaugeSeries { return &gaugeSeries{} }),
	}
}

// RecordCall 实现 Tracker。
func (m *MemoryTracker) RecordCall(_ context.Context, labels LabelSet) {
	m.counters.get(labels).value.Add(1)
}

// ObserveLatency 实现 Tracker。
func (m *MemoryTracker) ObserveLatency(_ context.Context, d time.Duration, labels LabelSet) {
	m.histograms.get(labels).observe(d)
}

// SetConcurrency 实现 Tracker。
func (m *MemoryTracker) SetConcurrency(_ context.Context, delta int64, labels LabelSet) {
	m.gauges.get(labels).value.Add(delta)
}

// Counter 返回 labels 对应计数器的当前值，不存在时为 0。
func (m *MemoryTracker) Counter(labels LabelSet) uint64 {
	if s, ok := m.counters.lookup(labels); ok {
		return s.value.Load()
	}
	return 0
}

// Gauge 返回 labels 对应 gauge 的当前值，不存在时为 0。
func (m *MemoryTracker) Gauge(labels LabelSet) int64 {
	if s, ok := m.gauges.lookup(labels); ok {
		return s.value.Load()
	}
	return 0
}

// Histogram 返回 labels 对应直方图的快照。
func (m *MemoryTracker) Histogram(labels LabelSet) (HistogramSnapshot, bool) {
	s, ok := m.histograms.lookup(labels)
	if !ok {
		return HistogramSnapshot{}, false
	}
	return s.snapshot(), true
}

// CounterPoint 是计数器快照中的一条序列。
type CounterPoint struct {
	Labels LabelSet
	Value  uint64
}

// GaugePoint 是 gauge 快照中的一条序列。
type GaugePoint struct {
	Labels LabelSet
	Value  int64
}

// HistogramPoint 是直方图快照中的一条序列。
type HistogramPoint struct {
	Labels LabelSet
	HistogramSnapshot
}

// HistogramSnapshot 是直方图的累计快照。
type HistogramSnapshot struct {
	// Bounds 为桶边界（秒）。
	Bounds []float64
	// Cumulative[i] 为观测值 <= Bounds[i] 的次数。
	Cumulative []uint64
	// Count 为总观测次数（即 +Inf 桶）。
	Count uint64
	// Sum 为观测值之和（秒）。
	Sum float64
}

// Snapshot 是 MemoryTracker 全部序列的快照，每类序列按标签文本排序。
type Snapshot struct {
	Counters   []CounterPoint
	Histograms []HistogramPoint
	Gauges     []GaugePoint
}

// Snapshot 返回当前全部序列的快照。
func (m *MemoryTracker) Snapshot() Snapshot {
	var snap Snapshot
	m.counters.each(func(l LabelSet, s *counterSeries) {
		snap.Counters = append(snap.Counters, CounterPoint{Labels: l, Value: s.value.Load()})
	})
	m.histograms.each(func(l LabelSet, s *histogramSeries) {
		snap.Histograms = append(snap.Histograms, HistogramPoint{Labels: l, HistogramSnapshot: s.snapshot()})
	})
	m.gauges.each(func(l LabelSet, s *gaugeSeries) {
		snap.Gauges = append(snap.Gauges, GaugePoint{Labels: l, Value: s.value.Load()})
	})
	slices.SortFunc(snap.Counters, func(a, b CounterPoint) int { return strings.Compare(a.Labels.String(), b.Labels.String()) })
	slices.SortFunc(snap.Histograms, func(a, b HistogramPoint) int { return strings.Compare(a.Labels.String(), b.Labels.String()) })
	slices.SortFunc(snap.Gauges, func(a, b GaugePoint) int { return strings.Compare(a.Labels.String(), b.Labels.String()) })
	return snap
}

// =============================================================================
// 序列实现
// =============================================================================

type counterSeries struct {
	value atomic.Uint64
}

type gaugeSeries struct {
	value atomic.Int64
}

type histogramSeries struct {
	cumulative []atomic.Uint64
	count      atomic.Uint64
	sumBits    atomic.Uint64
}

func newHistogramSeries() *histogramSeries {
	return &histogramSeries{cumulative: make([]atomic.Uint64, len(histogramBuckets))}
}

func (h *histogramSeries) observe(d time.Duration) {
	for i := BucketIndex(d); i < len(h.cumulative); i++ {
		h.cumulative[i].Add(1)
	}
	h.count.Add(1)
	seconds := d.Seconds()
	for {
		old := h.sumBits.Load()
		next := math.Float64bits(math.Float64frombits(old) + seconds)
		if h.sumBits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (h *histogramSeries) snapshot() HistogramSnapshot {
	snap := HistogramSnapshot{
		Bounds:     HistogramBuckets(),
		Cumulative: make([]uint64, len(h.cumulative)),
		Count:      h.count.Load(),
		Sum:        math.Float64frombits(h.sumBits.Load()),
	}
	for i := range h.cumulative {
		snap.Cumulative[i] = h.cumulative[i].Load()
	}
	return snap
}

// =============================================================================
// 分片 map
// =============================================================================

type seriesEntry[S any] struct {
	labels LabelSet
	series *S
}

type seriesShard[S any] struct {
	mu      sync.RWMutex
	entries map[uint64][]seriesEntry[S]
}

type seriesMap[S any] struct {
	shards  [memoryShards]*seriesShard[S]
	newFunc func() *S
}

func newSeriesMap[S any](newFunc func() *S) seriesMap[S] {
	m := seriesMap[S]{newFunc: newFunc}
	for i := range m.shards {
		m.shards[i] = &seriesShard[S]{entries: make(map[uint64][]seriesEntry[S])}
	}
	return m
}

func (m *seriesMap[S]) shard(fp uint64) *seriesShard[S] {
	return m.shards[fp&(memoryShards-1)]
}

// lookup 只读查找，不创建序列。
func (m *seriesMap[S]) lookup(labels LabelSet) (*S, bool) {
	fp := labels.Fingerprint()
	sh := m.shard(fp)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	for _, e := range sh.entries[fp] {
		if e.labels.Equal(labels) {
			return e.series, true
		}
	}
	return nil, false
}

// get 查找或创建序列。指纹冲突时按完整标签比较区分。
func (m *seriesMap[S]) get(labels LabelSet) *S {
	if s, ok := m.lookup(labels); ok {
		return s
	}
	fp := labels.Fingerprint()
	sh := m.shard(fp)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	for _, e := range sh.entries[fp] {
		if e.labels.Equal(labels) {
			return e.series
		}
	}
	s := m.newFunc()
	sh.entries[fp] = append(sh.entries[fp], seriesEntry[S]{labels: NewLabelSet(labels.labels...), series: s})
	return s
}

func (m *seriesMap[S]) each(fn func(LabelSet, *S)) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		for _, entries := range sh.entries {
			for _, e := range entries {
				fn(e.labels, e.series)
			}
		}
		sh.mu.RUnlock()
	}
}
