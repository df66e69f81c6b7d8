package xsink

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xalog/pkg/xbuffer"
)

// 回调写出端默认配置值
const (
	// DefaultBreakerFailures 默认连续失败多少次后熔断
	DefaultBreakerFailures = 5

	// DefaultBreakerTimeout 默认熔断打开后多久进入半开探测
	DefaultBreakerTimeout = 30 * time.Second
)

// Granularity 回调交付粒度。
type Granularity int

const (
	// GranularityChunk 整块交付，一次回调收到本次刷写的全部字节。
	GranularityChunk Granularity = iota
	// GranularityRecord 逐条交付，每条记录一次回调。
	GranularityRecord
)

// CallbackFunc 用户写出回调。p 仅在回调执行期间有效，留存须拷贝。
type CallbackFunc func(p []byte) error

// CallbackOption 回调写出端配置选项
type CallbackOption func(*CallbackSink)

// WithGranularity 设置交付粒度，默认整块交付。
func WithGranularity(g Granularity) CallbackOption {
	return func(s *CallbackSink) { s.gran = g }
}

// WithBreakerFailures 设置连续失败多少次后熔断。
func WithBreakerFailures(n uint32) CallbackOption {
	return func(s *CallbackSink) {
		if n > 0 {
			s.failures = n
		}
	}
}

// WithBreakerTimeout 设置熔断打开后进入半开探测的等待时间。
func WithBreakerTimeout(d time.Duration) CallbackOption {
	return func(s *CallbackSink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// 编译时断言
var _ Sink = (*CallbackSink)(nil)

// CallbackSink 把块交给用户回调的写出端。
//
// 设计决策: 回调运行在调度 goroutine 上，慢回调会拖慢刷写并最终
// 触发缓冲丢弃，这是有意的背压传导。熔断器保护的是反复失败的
// 回调: 连续失败达到阈值后暂时跳过交付（跳过的块计入 Suppressed），
// 避免每次刷写都在已坏死的回调上消耗时间。回调 panic 被 recover
// 隔离并计为一次失败。
type CallbackSink struct {
	fn       CallbackFunc
	gran     Granularity
	failures uint32
	timeout  time.Duration

	cb         *gobreaker.CircuitBreaker[any]
	panics     atomic.Uint64
	suppressed atomic.Uint64
}

// NewCallback 创建回调写出端。
func NewCallback(fn CallbackFunc, opts ...CallbackOption) (*CallbackSink, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	s := &CallbackSink{
		fn:       fn,
		failures: DefaultBreakerFailures,
		timeout:  DefaultBreakerTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "xsink-callback",
		MaxRequests: 1,
		Timeout:     s.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.failures
		},
	})
	return s, nil
}

// WriteChunk 实现 Sink 接口。熔断打开期间返回包装了
// [ErrSuppressed] 的错误，块不会交付回调。
func (s *CallbackSink) WriteChunk(ch *xbuffer.Chunk) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.deliver(ch)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.suppressed.Add(1)
		return fmt.Errorf("%w: %s", ErrSuppressed, err)
	}
	return err
}

func (s *CallbackSink) deliver(ch *xbuffer.Chunk) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
	}()
	if s.gran == GranularityRecord {
		for i := 0; i < ch.Records(); i++ {
			if err := s.fn(ch.Record(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return s.fn(ch.Bytes())
}

// Close 实现 Sink 接口。
func (s *CallbackSink) Close() error { return nil }

// Panics 返回被隔离的回调 panic 次数。
func (s *CallbackSink) Panics() uint64 { return s.panics.Load() }

// Suppressed 返回熔断期间被跳过的块数量。
func (s *CallbackSink) Suppressed() uint64 { return s.suppressed.Load() }
