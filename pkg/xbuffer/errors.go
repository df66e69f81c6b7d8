package xbuffer

import "errors"

// 预定义错误
var (
	// ErrBufferTooSmall 表示缓冲区总容量小于允许的下限。
	ErrBufferTooSmall = errors.New("xbuffer: buffer size too small")

	// ErrInvalidHighWater 表示高水位比例不在 (0, 1] 区间内。
	ErrInvalidHighWater = errors.New("xbuffer: invalid high-water ratio")
)
