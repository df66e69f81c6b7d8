package xsink

import "errors"

// 预定义错误
var (
	// ErrNilRotator 未提供轮转器
	ErrNilRotator = errors.New("xsink: nil rotator")

	// ErrNilWriter 未提供写入目标
	ErrNilWriter = errors.New("xsink: nil writer")

	// ErrNilCallback 未提供回调函数
	ErrNilCallback = errors.New("xsink: nil callback")

	// ErrCallbackPanic 回调函数 panic，已被隔离
	ErrCallbackPanic = errors.New("xsink: callback panicked")

	// ErrSuppressed 熔断器打开，本块未交付回调
	ErrSuppressed = errors.New("xsink: callback suppressed by breaker")
)
