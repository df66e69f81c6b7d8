package xrecord

import (
	"fmt"
	"strings"
)

// Level 日志级别。
//
// 数值从低到高依次为 Debug(0)、Info(1)、Warn(2)、Error(3)、Fatal(4)，
// 与配置项 min_log_level 的取值一一对应。
type Level int

const (
	// LevelDebug 调试级别。
	LevelDebug Level = iota
	// LevelInfo 常规级别。
	LevelInfo
	// LevelWarn 警告级别。
	LevelWarn
	// LevelError 错误级别。
	LevelError
	// LevelFatal 致命级别，记录落盘后进程终止。
	LevelFatal
)

// levelChars 各级别在行首的单字符标识。
var levelChars = [...]byte{'D', 'I', 'W', 'E', 'F'}

// levelNames 各级别的全名。
var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// Valid 报告级别是否在合法区间内。
func (l Level) Valid() bool {
	return l >= LevelDebug && l <= LevelFatal
}

// Char 返回级别的单字符标识（D/I/W/E/F）。
// 非法级别返回 '?'。
func (l Level) Char() byte {
	if !l.Valid() {
		return '?'
	}
	return levelChars[l]
}

// String 返回级别全名，非法级别返回 "LEVEL(n)" 形式。
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel 解析级别名称，大小写不敏感。
// 接受全名（debug/info/warn/error/fatal）及别名 warning。
// 无法识别时返回 ErrInvalidLevel。
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return LevelDebug, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}
