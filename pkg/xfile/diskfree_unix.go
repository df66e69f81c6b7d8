//go:build unix

package xfile

import "golang.org/x/sys/unix"

// statfs 可替换的系统调用入口，便于测试注入。
// mock 测试不可使用 t.Parallel()。
var statfs = unix.Statfs

// FreeBytes 返回 path 所在文件系统对非特权用户可用的剩余字节数。
func FreeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := statfs(path, &st); err != nil {
		return 0, err
	}
	//#nosec G115 -- Bavail/Bsize 为非负的文件系统统计值
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
