package xalog

import (
	"fmt"
	"time"

	"github.com/omeyang/xalog/pkg/xrecord"
)

// Level 记录级别，数值越大越严重。
type Level = xrecord.Level

// 级别常量。Fatal 记录写出后进程以退出码 2 终止。
const (
	LevelDebug = xrecord.LevelDebug
	LevelInfo  = xrecord.LevelInfo
	LevelWarn  = xrecord.LevelWarn
	LevelError = xrecord.LevelError
	LevelFatal = xrecord.LevelFatal
)

// ParseLevel 解析级别名，大小写不敏感，warning 等同 warn。
func ParseLevel(s string) (Level, error) {
	return xrecord.ParseLevel(s)
}

// enabled 级别闸门。被关掉的记录在这里退出，只付一次原子读。
// 引擎停止后普通记录全部丢弃，Fatal 不走这里。
func (e *Engine) enabled(l xrecord.Level) bool {
	return l.Valid() && int32(l) >= e.minLevel.Load() && e.state.Load() != stateStopped
}

// log 统一入口。skip 为调用点回溯深度，公开包装层固定为 2:
// 0 是 log 自身，1 是包装函数，2 是业务调用方。
func (e *Engine) log(level xrecord.Level, skip int, msg string) {
	if level != xrecord.LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(skip)
	if level == xrecord.LevelFatal {
		e.emitFatal(loc, msg, false)
		return
	}
	e.emit(level, loc, msg)
}

// emit 装配一条记录并写入缓冲。时间戳留空，由刷写方在取走时
// 统一补写，保证文件内字节序即时间序。
func (e *Engine) emit(level xrecord.Level, loc, msg string) {
	rec := e.asm.Build(level, loc, msg)
	e.buf.Append(rec.Bytes(), xrecord.TimeOffset)
	e.asm.Release(rec)
	e.stats.appends.Add(1)
}

// emitFatal 致命记录绕过缓冲直达致命路径，时间戳当场补写。
func (e *Engine) emitFatal(loc, msg string, allGoroutines bool) {
	e.stats.fatals.Add(1)
	rec := e.asm.Build(xrecord.LevelFatal, loc, msg)
	b := rec.Bytes()
	xrecord.Stamp(b[xrecord.TimeOffset:], time.Now())
	e.fatal.Trigger(b, allGoroutines)
	// 注入了退出函数的测试才会执行到这里
	e.asm.Release(rec)
}

// Log 以指定级别写一条记录。
func (e *Engine) Log(level Level, msg string) { e.log(level, 2, msg) }

// Logf 以指定级别写一条格式化记录。级别被关掉时不执行格式化。
func (e *Engine) Logf(level Level, format string, args ...any) {
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	e.log(level, 2, fmt.Sprintf(format, args...))
}

// Debug 写调试记录。
func (e *Engine) Debug(msg string) { e.log(LevelDebug, 2, msg) }

// Debugf 写格式化调试记录。
func (e *Engine) Debugf(format string, args ...any) {
	if !e.enabled(LevelDebug) {
		return
	}
	e.log(LevelDebug, 2, fmt.Sprintf(format, args...))
}

// Info 写信息记录。
func (e *Engine) Info(msg string) { e.log(LevelInfo, 2, msg) }

// Infof 写格式化信息记录。
func (e *Engine) Infof(format string, args ...any) {
	if !e.enabled(LevelInfo) {
		return
	}
	e.log(LevelInfo, 2, fmt.Sprintf(format, args...))
}

// Warn 写警告记录。
func (e *Engine) Warn(msg string) { e.log(LevelWarn, 2, msg) }

// Warnf 写格式化警告记录。
func (e *Engine) Warnf(format string, args ...any) {
	if !e.enabled(LevelWarn) {
		return
	}
	e.log(LevelWarn, 2, fmt.Sprintf(format, args...))
}

// Error 写错误记录。
func (e *Engine) Error(msg string) { e.log(LevelError, 2, msg) }

// Errorf 写格式化错误记录。
func (e *Engine) Errorf(format string, args ...any) {
	if !e.enabled(LevelError) {
		return
	}
	e.log(LevelError, 2, fmt.Sprintf(format, args...))
}

// Fatal 写致命记录并终止进程: 限时排空缓冲、写出致命记录与当前
// goroutine 回溯，最后以退出码 2 退出。引擎停止后依然终止进程。
func (e *Engine) Fatal(msg string) { e.log(LevelFatal, 2, msg) }

// Fatalf 写格式化致命记录并终止进程。
func (e *Engine) Fatalf(format string, args ...any) {
	e.log(LevelFatal, 2, fmt.Sprintf(format, args...))
}

// logSampled 采样命中后的写出。loc 已由包装层捕获。
func (e *Engine) logSampled(level Level, loc, msg string) {
	if level == LevelFatal {
		e.emitFatal(loc, msg, false)
		return
	}
	e.emit(level, loc, msg)
}

// LogEveryN 同一调用点每 n 次放行一次，第 1、n+1、2n+1 次写出。
// n 为 0 时全部放行。调用点按文件名加行号区分，跨引擎不共享。
func (e *Engine) LogEveryN(level Level, n uint64, msg string) {
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(1)
	if e.sites.Site(loc).EveryN(n) {
		e.logSampled(level, loc, msg)
	}
}

// LogEveryNf 同 LogEveryN，格式化在采样放行之后才执行。
func (e *Engine) LogEveryNf(level Level, n uint64, format string, args ...any) {
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(1)
	if e.sites.Site(loc).EveryN(n) {
		e.logSampled(level, loc, fmt.Sprintf(format, args...))
	}
}

// LogFirstN 同一调用点只放行前 n 次。n 为 0 时全部拦下。
func (e *Engine) LogFirstN(level Level, n uint64, msg string) {
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(1)
	if e.sites.Site(loc).FirstN(n) {
		e.logSampled(level, loc, msg)
	}
}

// LogFirstNf 同 LogFirstN，格式化在采样放行之后才执行。
func (e *Engine) LogFirstNf(level Level, n uint64, format string, args ...any) {
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(1)
	if e.sites.Site(loc).FirstN(n) {
		e.logSampled(level, loc, fmt.Sprintf(format, args...))
	}
}
