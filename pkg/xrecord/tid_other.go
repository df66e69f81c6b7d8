//go:build !linux

package xrecord

import "os"

// 非 Linux 平台缺少可移植的内核线程 ID 获取途径，退化为进程 ID。
// 进程 ID 在进程生命周期内不变，取一次即可。
var fallbackThreadID = os.Getpid()

// threadID 在非 Linux 平台上返回进程 ID。
func threadID() int {
	return fallbackThreadID
}
