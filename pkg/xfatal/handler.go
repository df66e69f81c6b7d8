package xfatal

import (
	"context"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"
)

const (
	// ExitCode 致命退出码。
	ExitCode = 2

	// RecordBufSize 致命记录缓冲的预分配大小。
	RecordBufSize = 4 * 1024

	// StackBufSize 回溯缓冲的预分配大小。
	StackBufSize = 64 * 1024

	// DefaultDrainTimeout 默认的排空等待上限。
	DefaultDrainTimeout = time.Second

	// DefaultLoserWait 并发触发时败者等待胜者的上限。
	DefaultLoserWait = 3 * time.Second

	// FatalExt 回溯文件扩展名。
	FatalExt = ".fatal"
)

// Drainer 有界排空入口。*xsched.Scheduler 直接满足该接口。
type Drainer interface {
	Drain(ctx context.Context) error
}

// Option 配置 Handler 的可选项。
type Option func(*Handler)

// WithDrainTimeout 设置排空等待上限。
func WithDrainTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.drainTimeout = d
		}
	}
}

// WithLoserWait 设置并发触发时败者的等待上限。
func WithLoserWait(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.loserWait = d
		}
	}
}

// WithExitFunc 替换进程退出函数，仅用于测试。
func WithExitFunc(fn func(int)) Option {
	return func(h *Handler) {
		if fn != nil {
			h.exit = fn
		}
	}
}

// Handler 崩溃路径处理器。
//
// 设计决策: 触发方可能在回调交付期间再次触发（回调里调用 Fatal），
// 此时败者与胜者在同一调用链上互相等待。败者的有界等待保证这种
// 递归触发最多闩住 loserWait 后仍然退出，进程不会悬死。
type Handler struct {
	drainer Drainer
	emit    func(p []byte)
	opener  func() (io.WriteCloser, error)
	exit    func(int)

	drainTimeout time.Duration
	loserWait    time.Duration

	inProgress atomic.Bool
	done       chan struct{}
	record     []byte
	stack      []byte
}

// New 创建崩溃路径处理器。
//
// emit 在排空后把致命记录写入常规出口（绕过缓冲直写）。opener 延迟
// 打开 .fatal 回溯文件，只在真正崩溃时被调用，纯回调模式下进程
// 生命周期内不会因此出现本地文件。
func New(drainer Drainer, emit func(p []byte), opener func() (io.WriteCloser, error), opts ...Option) (*Handler, error) {
	if drainer == nil {
		return nil, ErrNilDrainer
	}
	if emit == nil {
		return nil, ErrNilEmit
	}
	if opener == nil {
		return nil, ErrNilOpener
	}
	h := &Handler{
		drainer:      drainer,
		emit:         emit,
		opener:       opener,
		exit:         os.Exit,
		drainTimeout: DefaultDrainTimeout,
		loserWait:    DefaultLoserWait,
		done:         make(chan struct{}),
		record:       make([]byte, 0, RecordBufSize),
		stack:        make([]byte, StackBufSize),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// InProgress 报告崩溃路径是否已被触发。
func (h *Handler) InProgress() bool {
	return h.inProgress.Load()
}

// Trigger 执行崩溃路径后退出进程，不返回（测试注入 exit 时除外）。
//
// rec 为已装配完成的致命记录。allGoroutines 为 true 时回溯包含全部
// goroutine（信号触发的崩溃用），否则只含当前 goroutine。
//
// 流程: 有界排空缓冲 -> 致命记录写常规出口 -> 抓取回溯 ->
// 记录与回溯写入 .fatal 文件 -> 以 ExitCode 退出。每一步都尽力
// 而为，任何一步失败不阻止后续步骤。
func (h *Handler) Trigger(rec []byte, allGoroutines bool) {
	if !h.inProgress.CompareAndSwap(false, true) {
		// 败者: 等胜者完成，超时自行退出。
		select {
		case <-h.done:
		case <-time.After(h.loserWait):
		}
		h.exit(ExitCode)
		return
	}

	// 拷入预分配缓冲，超长截断。调用方的 rec 可能来自池，
	// 这之后不再引用。
	n := len(rec)
	if n > RecordBufSize {
		n = RecordBufSize
	}
	h.record = h.record[:n]
	copy(h.record, rec)

	ctx, cancel := context.WithTimeout(context.Background(), h.drainTimeout)
	_ = h.drainer.Drain(ctx)
	cancel()

	h.emit(h.record)

	sn := runtime.Stack(h.stack, allGoroutines)
	if w, err := h.opener(); err == nil {
		_, _ = w.Write(h.record)
		_, _ = w.Write(h.stack[:sn])
		_ = w.Close()
	}

	close(h.done)
	h.exit(ExitCode)
}
