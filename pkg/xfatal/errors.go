package xfatal

import "errors"

// 预定义错误
var (
	// ErrNilDrainer 未提供缓冲排空入口
	ErrNilDrainer = errors.New("xfatal: nil drainer")

	// ErrNilEmit 未提供常规出口写入函数
	ErrNilEmit = errors.New("xfatal: nil emit func")

	// ErrNilOpener 未提供 .fatal 文件打开函数
	ErrNilOpener = errors.New("xfatal: nil opener func")
)
