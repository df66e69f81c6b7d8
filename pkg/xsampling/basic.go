package xsampling

import (
	"context"
	"math"
)

// alwaysSampler 全采样策略
type alwaysSampler struct{}

// alwaysSamplerInstance 全采样单例
var alwaysSamplerInstance = &alwaysSampler{}

// Always 返回全采样策略
//
// 返回的采样器总是返回 true，即所有事件都会被采样。
func Always() Sampler {
	return alwaysSamplerInstance
}

func (s *alwaysSampler) ShouldSample(_ context.Context) bool {
	return true
}

// neverSampler 不采样策略
type neverSampler struct{}

// neverSamplerInstance 不采样单例
var neverSamplerInstance = &neverSampler{}

// Never 返回不采样策略
//
// 返回的采样器总是返回 false，即所有事件都会被跳过。
func Never() Sampler {
	return neverSamplerInstance
}

func (s *neverSampler) ShouldSample(_ context.Context) bool {
	return false
}

// validateRate 校验采样比率在 [0.0, 1.0] 内且非 NaN。
func validateRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return ErrInvalidRate
	}
	return nil
}

// RateSampler 固定比率采样策略
//
// 按照指定的比率进行随机采样。例如 rate=0.1 表示约 10% 的事件会被采样。
//
// 设计决策: 工厂函数返回具体类型而非 Sampler 接口，因为 Rate() 方法提供了
// 有用的自省能力，这些无法通过 Sampler 接口获得。
type RateSampler struct {
	rate float64
}

// NewRateSampler 创建固定比率采样器
//
// rate 表示采样比率，范围 [0.0, 1.0]：
//   - rate=0.0: 等同于 Never()
//   - rate=1.0: 等同于 Always()
//
// rate 超出 [0.0, 1.0] 范围或为 NaN 时返回 ErrInvalidRate。
func NewRateSampler(rate float64) (*RateSampler, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	return &RateSampler{rate: rate}, nil
}

func (s *RateSampler) ShouldSample(_ context.Context) bool {
	if s.rate <= 0 {
		return false
	}
	if s.rate >= 1 {
		return true
	}
	return randomFloat64() < s.rate
}

// Rate 返回当前采样比率
func (s *RateSampler) Rate() float64 {
	return s.rate
}

// CountSampler 计数采样策略（every-N）
//
// 每 N 个事件采样 1 个，第 1、n+1、2n+1... 个事件被采样。
// 内部复用 Counter 的 every-N 判定，包括它对非 2 的幂间隔
// 在并发下的不精确性。
//
// 设计决策: 工厂函数返回具体类型而非 Sampler 接口，因为 N() 和 Reset()
// 提供了有用的自省和控制能力，这些无法通过 Sampler 接口获得。
type CountSampler struct {
	n       uint64
	counter Counter
}

// NewCountSampler 创建计数采样器
//
// n 表示采样间隔，即每 n 个事件采样 1 个。
// n < 1 时返回 ErrInvalidCount。
func NewCountSampler(n int) (*CountSampler, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}
	return &CountSampler{n: uint64(n)}, nil
}

func (s *CountSampler) ShouldSample(_ context.Context) bool {
	if s.n == 0 {
		// 零值安全：未经构造的零值实例按全采样处理
		return true
	}
	return s.counter.EveryN(s.n)
}

// Reset 重置计数器到初始状态
func (s *CountSampler) Reset() {
	s.counter.count.Store(0)
}

// N 返回采样间隔
func (s *CountSampler) N() int {
	return int(s.n)
}

// FirstNSampler 前 N 条采样策略（first-N）
//
// 只采样最初的 n 个事件，此后永久停止采样；计数仍继续递增。
type FirstNSampler struct {
	n       uint64
	counter Counter
}

// NewFirstNSampler 创建前 N 条采样器
//
// n < 1 时返回 ErrInvalidCount。
func NewFirstNSampler(n int) (*FirstNSampler, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}
	return &FirstNSampler{n: uint64(n)}, nil
}

func (s *FirstNSampler) ShouldSample(_ context.Context) bool {
	return s.counter.FirstN(s.n)
}

// Reset 重置计数器到初始状态
func (s *FirstNSampler) Reset() {
	s.counter.count.Store(0)
}

// N 返回采样条数上限
func (s *FirstNSampler) N() int {
	return int(s.n)
}

// Emitted 返回已经过判定的事件总数
func (s *FirstNSampler) Emitted() uint64 {
	n := s.counter.Count()
	if n > s.n {
		return s.n
	}
	return n
}

// 确保实现了接口
var (
	_ Sampler           = (*alwaysSampler)(nil)
	_ Sampler           = (*neverSampler)(nil)
	_ Sampler           = (*RateSampler)(nil)
	_ Sampler           = (*CountSampler)(nil)
	_ Sampler           = (*FirstNSampler)(nil)
	_ ResettableSampler = (*CountSampler)(nil)
	_ ResettableSampler = (*FirstNSampler)(nil)
)
