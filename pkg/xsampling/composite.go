package xsampling

import "context"

// CompositeMode 组合采样模式
type CompositeMode int

const (
	// ModeAND 要求所有子采样器都通过才采样
	//
	// 空列表时返回 true（逻辑与的恒等元）
	ModeAND CompositeMode = iota

	// ModeOR 任一子采样器通过即采样
	//
	// 空列表时返回 false（逻辑或的恒等元）
	ModeOR
)

// String 返回组合模式的字符串表示
func (m CompositeMode) String() string {
	switch m {
	case ModeAND:
		return "AND"
	case ModeOR:
		return "OR"
	default:
		return "Unknown"
	}
}

// CompositeSampler 组合采样策略
//
// 将多个采样器组合在一起，支持 AND/OR 逻辑。
// 组合采样器使用短路求值：AND 模式遇到 false 立即返回，OR 模式遇到 true
// 立即返回。
//
// 设计决策: 有状态子采样器（如 CountSampler）的内部状态仅在实际被求值时
// 更新，因此子采样器的排列顺序会影响有状态采样器的计数进度。
type CompositeSampler struct {
	samplers []Sampler
	mode     CompositeMode
}

// NewCompositeSampler 创建组合采样器
//
// mode 指定组合逻辑（ModeAND 或 ModeOR）。
// 非法 mode 返回 ErrInvalidMode，nil 子采样器返回 ErrNilSampler。
func NewCompositeSampler(mode CompositeMode, samplers ...Sampler) (*CompositeSampler, error) {
	if mode != ModeAND && mode != ModeOR {
		return nil, ErrInvalidMode
	}

	for _, s := range samplers {
		if s == nil {
			return nil, ErrNilSampler
		}
	}

	// 复制切片以防止外部修改
	copied := make([]Sampler, len(samplers))
	copy(copied, samplers)
	return &CompositeSampler{
		samplers: copied,
		mode:     mode,
	}, nil
}

func (s *CompositeSampler) ShouldSample(ctx context.Context) bool {
	if len(s.samplers) == 0 {
		return s.mode == ModeAND
	}

	for _, sampler := range s.samplers {
		result := sampler.ShouldSample(ctx)
		if s.mode == ModeAND && !result {
			return false
		}
		if s.mode == ModeOR && result {
			return true
		}
	}

	return s.mode == ModeAND
}

// Reset 重置所有可重置的子采样器
func (s *CompositeSampler) Reset() {
	for _, sampler := range s.samplers {
		if resettable, ok := sampler.(ResettableSampler); ok {
			resettable.Reset()
		}
	}
}

// Mode 返回组合模式
func (s *CompositeSampler) Mode() CompositeMode {
	return s.mode
}

// All 创建 AND 组合采样器（便捷函数）
//
// 等同于 NewCompositeSampler(ModeAND, samplers...)
func All(samplers ...Sampler) (*CompositeSampler, error) {
	return NewCompositeSampler(ModeAND, samplers...)
}

// Any 创建 OR 组合采样器（便捷函数）
//
// 等同于 NewCompositeSampler(ModeOR, samplers...)
func Any(samplers ...Sampler) (*CompositeSampler, error) {
	return NewCompositeSampler(ModeOR, samplers...)
}

// 确保实现了接口
var (
	_ Sampler           = (*CompositeSampler)(nil)
	_ ResettableSampler = (*CompositeSampler)(nil)
)
