package xfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// containsNullByte 检测路径是否包含空字节。内核在 VFS 层会在空字节处
// 截断路径，导致 Go 代码与操作系统看到的路径不一致。
func containsNullByte(path string) bool {
	return strings.ContainsRune(path, 0)
}

// hasDotDotSegment 检测路径中是否包含 ".." 独立路径段。同时把 '/' 与
// '\' 视为分隔符，即使在 Linux 上也能拦下 Windows 风格的穿越写法。
func hasDotDotSegment(path string) bool {
	i := 0
	for i < len(path) {
		if path[i] == '/' || path[i] == '\\' {
			i++
			continue
		}
		j := i
		for j < len(path) && path[j] != '/' && path[j] != '\\' {
			j++
		}
		if j-i == 2 && path[i] == '.' && path[i+1] == '.' {
			return true
		}
		i = j
	}
	return false
}

// SanitizePath 对文件路径做格式净化与规范化。
//
// 拒绝空路径、含空字节的路径、相对穿越段（".."）以及以分隔符结尾的
// 显式目录路径，随后经 filepath.Clean 规范化。绝对路径原样接受，
// 目录约束不在本函数职责内。
func SanitizePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if containsNullByte(path) {
		return "", fmt.Errorf("%w: %q", ErrNullByte, path)
	}
	if hasDotDotSegment(path) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, path)
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\") {
		return "", fmt.Errorf("%w: %q", ErrTrailingSeparator, path)
	}
	return filepath.Clean(path), nil
}
