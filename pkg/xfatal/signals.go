package xfatal

import (
	"os"
	"syscall"
)

// 信号分类。优雅信号走正常关闭（排空后退出留给调用方），致命信号
// 走崩溃路径并携带全部 goroutine 的回溯。
var (
	// GracefulSignals 触发优雅关闭的信号。
	GracefulSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

	// FatalSignals 触发崩溃路径的信号。
	FatalSignals = []os.Signal{syscall.SIGQUIT, syscall.SIGABRT}
)

// IsFatalSignal 报告 sig 是否属于致命信号。
func IsFatalSignal(sig os.Signal) bool {
	for _, s := range FatalSignals {
		if sig == s {
			return true
		}
	}
	return false
}
