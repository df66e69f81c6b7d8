package xfile

import "errors"

// 预定义错误
var (
	// ErrEmptyPath 路径为空
	ErrEmptyPath = errors.New("xfile: empty path")

	// ErrNullByte 路径包含空字节
	ErrNullByte = errors.New("xfile: path contains null byte")

	// ErrPathTraversal 路径包含相对穿越段
	ErrPathTraversal = errors.New("xfile: path traversal detected")

	// ErrTrailingSeparator 路径以分隔符结尾，指向目录而非文件
	ErrTrailingSeparator = errors.New("xfile: path has trailing separator")

	// ErrInvalidPerm 目录权限缺少所有者执行位
	ErrInvalidPerm = errors.New("xfile: invalid directory permission")

	// ErrUnsupportedPlatform 当前平台不支持该操作
	ErrUnsupportedPlatform = errors.New("xfile: unsupported platform")
)
