// Package xfile 提供日志文件操作的基础能力。
//
// 包含三类功能: 父目录确保（EnsureDir）、路径格式净化（SanitizePath）
// 与磁盘剩余空间查询（FreeBytes）。路径净化只做格式校验与相对穿越
// 阻断，不承担目录约束职责。
package xfile
