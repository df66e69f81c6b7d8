package xalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/omeyang/xalog/pkg/xalog"
)

// =============================================================================
// 性能测试
// =============================================================================

// newBenchEngine 回调直接丢弃，压测只度量生产者路径与缓冲开销。
func newBenchEngine(b *testing.B, minLevel int) *xalog.Engine {
	b.Helper()
	cfg := xalog.Config{
		LogDir:      b.TempDir(),
		LogFileName: "bench",
		MinLogLevel: minLevel,
		LogFlushMs:  20,
	}
	e, err := xalog.New(cfg,
		xalog.WithChunkWriteCallback(func(p []byte) error { return nil }),
		xalog.WithoutSignalHandler(),
	)
	if err != nil {
		b.Fatal(err)
	}
	if err := e.Start(); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Stop(ctx)
	})
	return e
}

func BenchmarkEngine_Info(b *testing.B) {
	e := newBenchEngine(b, 0)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.Info("benchmark message with a typical payload length")
	}
}

func BenchmarkEngine_Infof(b *testing.B) {
	e := newBenchEngine(b, 0)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.Infof("benchmark message %d with value %s", i, "payload")
	}
}

func BenchmarkEngine_Info_Disabled(b *testing.B) {
	e := newBenchEngine(b, int(xalog.LevelError))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.Info("should be skipped by the level gate")
	}
}

func BenchmarkEngine_Infof_Disabled(b *testing.B) {
	e := newBenchEngine(b, int(xalog.LevelError))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.Infof("skipped without formatting %d", i)
	}
}

func BenchmarkEngine_Info_Parallel(b *testing.B) {
	e := newBenchEngine(b, 0)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			e.Info("parallel benchmark message")
		}
	})
}

func BenchmarkEngine_LogEveryN(b *testing.B) {
	e := newBenchEngine(b, 0)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.LogEveryN(xalog.LevelInfo, 100, "sampled benchmark message")
	}
}
