package xalog

import "errors"

// 引擎构造与生命周期相关错误。
var (
	// ErrInvalidConfig 配置校验失败，具体原因经 %w 包装附带。
	ErrInvalidConfig = errors.New("xalog: invalid config")

	// ErrCallbackConflict 块回调与记录回调只能注册其一。
	ErrCallbackConflict = errors.New("xalog: chunk and record callbacks are mutually exclusive")

	// ErrBadSchedule 轮转排程表达式无法解析，或没有本地文件可供轮转。
	ErrBadSchedule = errors.New("xalog: invalid rotate schedule")

	// ErrAlreadyStarted 引擎已经启动。
	ErrAlreadyStarted = errors.New("xalog: engine already started")

	// ErrNotStarted 引擎尚未启动。
	ErrNotStarted = errors.New("xalog: engine not started")

	// ErrStopped 引擎已停止，不能再次启动。
	ErrStopped = errors.New("xalog: engine stopped")
)
