package xalog

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xalog/pkg/xconf"
	"github.com/omeyang/xalog/pkg/xfatal"
)

var (
	defaultMu     sync.Mutex
	defaultEngine atomic.Pointer[Engine]
)

// Init 用给定配置初始化并启动包级默认引擎。只有第一次调用生效，
// 之后的调用不做任何事并返回 nil。Shutdown 之后引擎保持占位，
// 再次 Init 同样是空操作，一个进程周期至多一个默认引擎。
func Init(cfg Config, opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine.Load() != nil {
		return nil
	}
	e, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := e.Start(); err != nil {
		return err
	}
	defaultEngine.Store(e)
	return nil
}

// InitFromFile 读取配置文件并初始化默认引擎。
func InitFromFile(path string, opts ...Option) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	return Init(cfg, opts...)
}

// InitFromBytes 从内存中的配置内容初始化默认引擎。
func InitFromBytes(data []byte, format xconf.Format, opts ...Option) error {
	cfg, err := ParseConfig(data, format)
	if err != nil {
		return err
	}
	return Init(cfg, opts...)
}

// Default 返回默认引擎，Init 之前为 nil。
func Default() *Engine {
	return defaultEngine.Load()
}

// Shutdown 停止默认引擎并等待落盘，ctx 约束等待时长。
// 没有默认引擎时直接返回 nil。ctx 为 nil 时使用内置超时。
func Shutdown(ctx context.Context) error {
	e := defaultEngine.Load()
	if e == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), defaultStopTimeout)
		defer cancel()
	}
	return e.Stop(ctx)
}

// resetDefault 清空默认引擎。仅测试使用。
func resetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if e := defaultEngine.Load(); e != nil && e.state.Load() != stateNew {
		ctx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
		_ = e.Stop(ctx)
		cancel()
	}
	defaultEngine.Store(nil)
}

// fatalFallback 默认引擎缺位时的致命出口。保持 Fatal 必然终止
// 进程的契约，回溯直接写标准错误。
func fatalFallback(msg string) {
	fmt.Fprintf(stderrWriter, "xalog: fatal before init: %s\n", msg)
	buf := make([]byte, 64*1024)
	n := runtime.Stack(buf, false)
	_, _ = stderrWriter.Write(buf[:n])
	exit := fatalExit
	if exit == nil {
		exit = os.Exit
	}
	exit(xfatal.ExitCode)
}

// Log 以指定级别向默认引擎写一条记录，Init 之前为空操作。
func Log(level Level, msg string) {
	if e := defaultEngine.Load(); e != nil {
		e.log(level, 2, msg)
	} else if level == LevelFatal {
		fatalFallback(msg)
	}
}

// Logf 以指定级别向默认引擎写一条格式化记录。
func Logf(level Level, format string, args ...any) {
	e := defaultEngine.Load()
	if e == nil {
		if level == LevelFatal {
			fatalFallback(fmt.Sprintf(format, args...))
		}
		return
	}
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	e.log(level, 2, fmt.Sprintf(format, args...))
}

// Debug 写调试记录。
func Debug(msg string) {
	if e := defaultEngine.Load(); e != nil {
		e.log(LevelDebug, 2, msg)
	}
}

// Debugf 写格式化调试记录。
func Debugf(format string, args ...any) {
	if e := defaultEngine.Load(); e != nil && e.enabled(LevelDebug) {
		e.log(LevelDebug, 2, fmt.Sprintf(format, args...))
	}
}

// Info 写信息记录。
func Info(msg string) {
	if e := defaultEngine.Load(); e != nil {
		e.log(LevelInfo, 2, msg)
	}
}

// Infof 写格式化信息记录。
func Infof(format string, args ...any) {
	if e := defaultEngine.Load(); e != nil && e.enabled(LevelInfo) {
		e.log(LevelInfo, 2, fmt.Sprintf(format, args...))
	}
}

// Warn 写警告记录。
func Warn(msg string) {
	if e := defaultEngine.Load(); e != nil {
		e.log(LevelWarn, 2, msg)
	}
}

// Warnf 写格式化警告记录。
func Warnf(format string, args ...any) {
	if e := defaultEngine.Load(); e != nil && e.enabled(LevelWarn) {
		e.log(LevelWarn, 2, fmt.Sprintf(format, args...))
	}
}

// Error 写错误记录。
func Error(msg string) {
	if e := defaultEngine.Load(); e != nil {
		e.log(LevelError, 2, msg)
	}
}

// Errorf 写格式化错误记录。
func Errorf(format string, args ...any) {
	if e := defaultEngine.Load(); e != nil && e.enabled(LevelError) {
		e.log(LevelError, 2, fmt.Sprintf(format, args...))
	}
}

// Fatal 写致命记录并终止进程。Init 之前调用直接写标准错误后退出。
func Fatal(msg string) {
	if e := defaultEngine.Load(); e != nil {
		e.log(LevelFatal, 2, msg)
		return
	}
	fatalFallback(msg)
}

// Fatalf 写格式化致命记录并终止进程。
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e := defaultEngine.Load(); e != nil {
		e.log(LevelFatal, 2, msg)
		return
	}
	fatalFallback(msg)
}

// LogEveryN 同一调用点每 n 次放行一次写入默认引擎。
func LogEveryN(level Level, n uint64, msg string) {
	e := defaultEngine.Load()
	if e == nil {
		return
	}
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(1)
	if e.sites.Site(loc).EveryN(n) {
		e.logSampled(level, loc, msg)
	}
}

// LogEveryNf 同 LogEveryN，格式化在采样放行之后才执行。
func LogEveryNf(level Level, n uint64, format string, args ...any) {
	e := defaultEngine.Load()
	if e == nil {
		return
	}
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(1)
	if e.sites.Site(loc).EveryN(n) {
		e.logSampled(level, loc, fmt.Sprintf(format, args...))
	}
}

// LogFirstN 同一调用点只放行前 n 次写入默认引擎。
func LogFirstN(level Level, n uint64, msg string) {
	e := defaultEngine.Load()
	if e == nil {
		return
	}
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(1)
	if e.sites.Site(loc).FirstN(n) {
		e.logSampled(level, loc, msg)
	}
}

// LogFirstNf 同 LogFirstN，格式化在采样放行之后才执行。
func LogFirstNf(level Level, n uint64, format string, args ...any) {
	e := defaultEngine.Load()
	if e == nil {
		return
	}
	if level != LevelFatal && !e.enabled(level) {
		return
	}
	loc := e.asm.Callsite(1)
	if e.sites.Site(loc).FirstN(n) {
		e.logSampled(level, loc, fmt.Sprintf(format, args...))
	}
}

// Flush 同步刷写默认引擎的缓冲，Init 之前为空操作。
func Flush(ctx context.Context) error {
	if e := defaultEngine.Load(); e != nil {
		return e.Flush(ctx)
	}
	return nil
}

// SetMinLevel 调整默认引擎的最低记录级别。
func SetMinLevel(l Level) error {
	if e := defaultEngine.Load(); e != nil {
		return e.SetMinLevel(l)
	}
	return ErrNotStarted
}
