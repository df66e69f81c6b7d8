package xalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

// sumInt64 在采集结果中找到名为 name 的计数器并汇总数据点。
func sumInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return 0, false
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, true
		}
	}
	return 0, false
}

func gaugeInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			g, ok := m.Data.(metricdata.Gauge[int64])
			if !ok || len(g.DataPoints) == 0 {
				return 0, false
			}
			return g.DataPoints[len(g.DataPoints)-1].Value, true
		}
	}
	return 0, false
}

// =============================================================================
// 指标上报
// =============================================================================

func TestEngineMetricsPublish(t *testing.T) {
	mp, reader := newManualMeter(t)
	e := newTestEngine(t, testConfig(t), WithMeterProvider(mp))

	e.Info("metric one")
	e.Info("metric two")
	flushEngine(t, e)

	// 直接驱动一次上报，不等轮询周期
	e.metrics.publish(context.Background(), e.msrc.collect())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	appends, ok := sumInt64(rm, metricAppends)
	require.True(t, ok, "appends counter missing")
	assert.Equal(t, int64(2), appends)

	flushes, ok := sumInt64(rm, metricFlushes)
	require.True(t, ok, "flushes counter missing")
	assert.Positive(t, flushes)

	buffered, ok := gaugeInt64(rm, metricBuffered)
	require.True(t, ok, "buffered gauge missing")
	assert.Zero(t, buffered, "buffer should be empty right after a flush")
}

func TestEngineMetricsDeltaNoDoubleCount(t *testing.T) {
	mp, reader := newManualMeter(t)
	e := newTestEngine(t, testConfig(t), WithMeterProvider(mp))

	e.Info("once")
	flushEngine(t, e)

	ctx := context.Background()
	e.metrics.publish(ctx, e.msrc.collect())
	e.metrics.publish(ctx, e.msrc.collect()) // 无新增活动

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	appends, ok := sumInt64(rm, metricAppends)
	require.True(t, ok)
	assert.Equal(t, int64(1), appends, "idle publish must not re-add the same delta")

	e.Info("twice")
	flushEngine(t, e)
	e.metrics.publish(ctx, e.msrc.collect())

	require.NoError(t, reader.Collect(ctx, &rm))
	appends, ok = sumInt64(rm, metricAppends)
	require.True(t, ok)
	assert.Equal(t, int64(2), appends)
}

func TestEngineMetricsDropCounters(t *testing.T) {
	mp, reader := newManualMeter(t)

	cfg := testConfig(t)
	cfg.MaxLogBufferSize = 4 * 1024
	cfg.MaxLogSize = 512
	e, err := New(cfg, WithoutSignalHandler(), WithMeterProvider(mp))
	require.NoError(t, err)

	// 无刷写方的引擎持续写入，必然越过缓冲上限
	for i := 0; i < 64; i++ {
		e.Info("fill the buffer with a reasonably long payload to force drops")
	}

	e.metrics.publish(context.Background(), e.msrc.collect())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	drops, ok := sumInt64(rm, metricDropEvents)
	require.True(t, ok, "drop events counter missing")
	assert.Positive(t, drops)

	dropped, ok := sumInt64(rm, metricDroppedBytes)
	require.True(t, ok, "dropped bytes counter missing")
	assert.Positive(t, dropped)
}

func TestEngineMetricsFatals(t *testing.T) {
	fatalExit = func(int) {}
	t.Cleanup(func() { fatalExit = nil })

	mp, reader := newManualMeter(t)
	e := newTestEngine(t, testConfig(t), WithMeterProvider(mp))

	e.Fatal("counted crash")
	e.metrics.publish(context.Background(), e.msrc.collect())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	fatals, ok := sumInt64(rm, metricFatals)
	require.True(t, ok, "fatals counter missing")
	assert.Equal(t, int64(1), fatals)
}

func TestNewEngineMetricsNilProvider(t *testing.T) {
	m, err := newEngineMetrics(nil, "test-instance")
	require.NoError(t, err)
	require.NotNil(t, m)

	// 全局 provider 未安装时为空操作，publish 不应 panic
	m.publish(context.Background(), metricsSnapshot{appends: 3, buffered: 7})
}
