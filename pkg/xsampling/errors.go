package xsampling

import "errors"

var (
	// ErrInvalidRate 表示采样比率不在 [0.0, 1.0] 范围内。
	ErrInvalidRate = errors.New("xsampling: rate must be in [0.0, 1.0]")

	// ErrInvalidCount 表示采样间隔 n 不合法（必须 >= 1）。
	ErrInvalidCount = errors.New("xsampling: count n must be >= 1")

	// ErrInvalidMode 表示组合采样模式不合法。
	ErrInvalidMode = errors.New("xsampling: invalid CompositeMode, must be ModeAND or ModeOR")

	// ErrNilSampler 表示子采样器为 nil。
	ErrNilSampler = errors.New("xsampling: sampler must not be nil")
)
