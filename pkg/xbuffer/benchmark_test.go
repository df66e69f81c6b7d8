package xbuffer

import (
	"testing"
	"time"
)

func benchBuffer(b *testing.B, parallel bool) {
	buf, err := New(32<<20, WithStamper(func(dst []byte, t time.Time) {
		if len(dst) > 0 {
			dst[0] = 'T'
		}
	}))
	if err != nil {
		b.Fatal(err)
	}
	// 后台消费，避免基准测量丢弃路径。
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-buf.HighWater():
			case <-time.After(time.Millisecond):
			}
			if ch := buf.SwapAndTake(); ch != nil {
				buf.Release(ch)
			}
		}
	}()
	defer close(stop)

	rec := []byte("I0102 03:04:05.678 12345 file.go:42] benchmark record payload\n")
	b.ResetTimer()
	if parallel {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				buf.Append(rec, 1)
			}
		})
	} else {
		for i := 0; i < b.N; i++ {
			buf.Append(rec, 1)
		}
	}
}

func BenchmarkAppend(b *testing.B)         { benchBuffer(b, false) }
func BenchmarkAppendParallel(b *testing.B) { benchBuffer(b, true) }

func BenchmarkSwapCycle(b *testing.B) {
	buf, err := New(1 << 20)
	if err != nil {
		b.Fatal(err)
	}
	rec := []byte("short record\n")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Append(rec, -1)
		if ch := buf.SwapAndTake(); ch != nil {
			buf.Release(ch)
		}
	}
}
