package xrecord

import "errors"

var (
	// ErrInvalidLevel 表示日志级别不在合法区间内。
	ErrInvalidLevel = errors.New("xrecord: invalid log level")

	// ErrRecordCapTooSmall 表示单条记录上限小于最小允许值。
	// 上限至少要容纳记录头（级别、时间戳、线程 ID、调用点）和换行符。
	ErrRecordCapTooSmall = errors.New("xrecord: record cap too small")
)
