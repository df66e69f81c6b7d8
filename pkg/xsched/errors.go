package xsched

import "errors"

// 预定义错误
var (
	// ErrInvalidInterval 表示刷写周期不是正值。
	ErrInvalidInterval = errors.New("xsched: invalid flush interval")

	// ErrNilTarget 表示未提供缓冲端点。
	ErrNilTarget = errors.New("xsched: nil target")

	// ErrNilWriter 表示未提供写出端。
	ErrNilWriter = errors.New("xsched: nil chunk writer")

	// ErrAlreadyStarted 表示调度器已经启动。
	ErrAlreadyStarted = errors.New("xsched: scheduler already started")

	// ErrNotStarted 表示调度器尚未启动。
	ErrNotStarted = errors.New("xsched: scheduler not started")

	// ErrStopped 表示调度器已停止，无法受理请求。
	ErrStopped = errors.New("xsched: scheduler stopped")
)
