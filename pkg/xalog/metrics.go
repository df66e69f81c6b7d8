package xalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xalog/pkg/xbuffer"
	"github.com/omeyang/xalog/pkg/xsched"
	"github.com/omeyang/xalog/pkg/xsink"
)

const (
	instrumentationName = "github.com/omeyang/xalog"

	metricAppends      = "xalog.appends.total"
	metricDropEvents   = "xalog.drop_events.total"
	metricDroppedBytes = "xalog.dropped_bytes.total"
	metricOverruns     = "xalog.overruns.total"
	metricFlushes      = "xalog.flushes.total"
	metricRotations    = "xalog.rotations.total"
	metricCBPanics     = "xalog.callback_panics.total"
	metricCBSuppressed = "xalog.callback_suppressed.total"
	metricFatals       = "xalog.fatals.total"
	metricBuffered     = "xalog.buffered_bytes"

	// metricsPollInterval 计数器增量上报的周期。
	metricsPollInterval = 10 * time.Second
)

// engineStats 热路径计数器。指标上报和 Stats 都从这里取增量，
// 记录路径只付一次原子加的成本。
type engineStats struct {
	appends atomic.Uint64
	fatals  atomic.Uint64
}

// engineMetrics 引擎自监控仪表。
// 默认绑定 otel 全局 MeterProvider，宿主未安装时全部为空操作。
type engineMetrics struct {
	appends      metric.Int64Counter
	dropEvents   metric.Int64Counter
	droppedBytes metric.Int64Counter
	overruns     metric.Int64Counter
	flushes      metric.Int64Counter
	rotations    metric.Int64Counter
	cbPanics     metric.Int64Counter
	cbSuppressed metric.Int64Counter
	fatals       metric.Int64Counter
	buffered     metric.Int64Gauge

	attrs metric.MeasurementOption
	prev  metricsSnapshot
}

func newEngineMetrics(mp metric.MeterProvider, instanceID string) (*engineMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	m := &engineMetrics{
		attrs: metric.WithAttributeSet(attribute.NewSet(
			attribute.String("xalog.instance_id", instanceID),
		)),
	}

	var err error
	if m.appends, err = meter.Int64Counter(metricAppends,
		metric.WithDescription("records appended to the buffer"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.dropEvents, err = meter.Int64Counter(metricDropEvents,
		metric.WithDescription("buffer overflow drop events"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.droppedBytes, err = meter.Int64Counter(metricDroppedBytes,
		metric.WithDescription("bytes discarded by the drop policy"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.overruns, err = meter.Int64Counter(metricOverruns,
		metric.WithDescription("appends that exceeded the buffer bound"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.flushes, err = meter.Int64Counter(metricFlushes,
		metric.WithDescription("flush cycles, empty flushes included"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.rotations, err = meter.Int64Counter(metricRotations,
		metric.WithDescription("log file rotations"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.cbPanics, err = meter.Int64Counter(metricCBPanics,
		metric.WithDescription("panics absorbed from the write callback"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.cbSuppressed, err = meter.Int64Counter(metricCBSuppressed,
		metric.WithDescription("flushes skipped by the open circuit breaker"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.fatals, err = meter.Int64Counter(metricFatals,
		metric.WithDescription("fatal triggers"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xalog: create counter failed: %w", err)
	}
	if m.buffered, err = meter.Int64Gauge(metricBuffered,
		metric.WithDescription("bytes currently buffered in memory"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("xalog: create gauge failed: %w", err)
	}
	return m, nil
}

// metricsSnapshot 一次采集到的累计计数。
type metricsSnapshot struct {
	appends      uint64
	dropEvents   uint64
	droppedBytes uint64
	overruns     uint64
	flushes      uint64
	rotations    uint64
	cbPanics     uint64
	cbSuppressed uint64
	fatals       uint64
	buffered     int
}

// publish 上报自上次以来的增量。只在指标轮询 goroutine 内调用。
func (m *engineMetrics) publish(ctx context.Context, cur metricsSnapshot) {
	add := func(c metric.Int64Counter, now, prev uint64) {
		if d := now - prev; d > 0 {
			c.Add(ctx, int64(d), m.attrs)
		}
	}
	add(m.appends, cur.appends, m.prev.appends)
	add(m.dropEvents, cur.dropEvents, m.prev.dropEvents)
	add(m.droppedBytes, cur.droppedBytes, m.prev.droppedBytes)
	add(m.overruns, cur.overruns, m.prev.overruns)
	add(m.flushes, cur.flushes, m.prev.flushes)
	add(m.rotations, cur.rotations, m.prev.rotations)
	add(m.cbPanics, cur.cbPanics, m.prev.cbPanics)
	add(m.cbSuppressed, cur.cbSuppressed, m.prev.cbSuppressed)
	add(m.fatals, cur.fatals, m.prev.fatals)
	m.buffered.Record(ctx, int64(cur.buffered), m.attrs)
	m.prev = cur
}

// metricsSource 指标采集面。只持有引擎的组成部件，不反向引用
// 引擎本身，指标轮询服务因此不会阻止未停止引擎被回收清理。
type metricsSource struct {
	stats *engineStats
	buf   *xbuffer.DualBuffer
	sched *xsched.Scheduler
	rot   interface{ Rotations() uint64 }
	cb    *xsink.CallbackSink
}

func (s *metricsSource) collect() metricsSnapshot {
	snap := metricsSnapshot{
		appends:      s.stats.appends.Load(),
		fatals:       s.stats.fatals.Load(),
		dropEvents:   s.buf.DropEvents(),
		droppedBytes: s.buf.DroppedBytes(),
		overruns:     s.buf.Overruns(),
		flushes:      s.sched.Flushes(),
		buffered:     s.buf.BufferedBytes(),
	}
	if s.rot != nil {
		snap.rotations = s.rot.Rotations()
	}
	if s.cb != nil {
		snap.cbPanics = s.cb.Panics()
		snap.cbSuppressed = s.cb.Suppressed()
	}
	return snap
}

// metricsPoller 返回供 lifecycle.Ticker 周期执行的上报函数。
func metricsPoller(m *engineMetrics, src *metricsSource) func(context.Context) error {
	return func(ctx context.Context) error {
		m.publish(ctx, src.collect())
		return nil
	}
}
