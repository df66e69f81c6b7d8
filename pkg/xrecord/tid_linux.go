//go:build linux

package xrecord

import "golang.org/x/sys/unix"

// 系统调用函数变量，支持测试中 mock 替换。
// 注意：mock 测试不可使用 t.Parallel()，替换包级变量会引发竞态。
var gettid = unix.Gettid

// threadID 返回当前 goroutine 所在内核线程的 TID。
//
// goroutine 可能在 OS 线程间迁移，返回值只保证是取值时刻所在的线程。
// 对日志而言这已经足够：记录头里的线程 ID 用于事后区分并发来源，
// 不承诺与 goroutine 一一对应。
func threadID() int {
	return gettid()
}
