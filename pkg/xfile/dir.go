package xfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirPerm 默认目录权限。所有者读写执行，组读执行，其他无权限。
const DefaultDirPerm = 0750

// EnsureDir 确保 filename 的父目录存在，不存在时以 0750 创建。
// 目录已存在时不修改其权限。
func EnsureDir(filename string) error {
	return EnsureDirWithPerm(filename, DefaultDirPerm)
}

// EnsureDirWithPerm 确保 filename 的父目录存在，使用指定权限创建。
// perm 必须包含所有者执行位（0100），否则目录无法进入。
//
// 底层使用 os.MkdirAll，会跟随符号链接。filename 来自不可信输入时
// 应先经 [SanitizePath] 校验。
func EnsureDirWithPerm(filename string, perm os.FileMode) error {
	if filename == "" {
		return fmt.Errorf("filename is required: %w", ErrEmptyPath)
	}
	if containsNullByte(filename) {
		return fmt.Errorf("filename contains null byte: %w", ErrNullByte)
	}
	if perm&0100 == 0 {
		return fmt.Errorf("directory permission %04o missing owner execute bit: %w", perm, ErrInvalidPerm)
	}
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, perm)
}
