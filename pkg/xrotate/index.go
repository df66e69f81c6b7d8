package xrotate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/xalog/pkg/xfile"
)

// 序号轮转器默认配置值
const (
	// DefaultMaxFileSize 默认单个日志文件大小上限（256 MiB）
	DefaultMaxFileSize = 256 << 20

	// DefaultMaxFiles 默认轮转文件保有数量
	DefaultMaxFiles = 8

	// DefaultIndexFileMode 默认日志文件权限
	DefaultIndexFileMode = 0640

	// minMaxFileSize 单文件大小下限（1 KiB）
	minMaxFileSize = 1 << 10

	// maxMaxFileSize 单文件大小上限（1 TiB）
	maxMaxFileSize = 1 << 40

	// maxMaxFiles 轮转文件保有数量上限
	maxMaxFiles = 4096

	// logExt 日志文件扩展名
	logExt = ".log"

	// ioAttempts 文件系统操作的重试次数（包含首次尝试）
	ioAttempts = 3

	// ioRetryDelay 文件系统操作的重试间隔
	ioRetryDelay = 2 * time.Millisecond
)

type indexConfig struct {
	maxFileSize int64
	maxFiles    int
	fileMode    os.FileMode
	minDiskFree uint64
	onError     func(error)
}

// IndexOption 序号轮转器配置选项函数
type IndexOption func(*indexConfig)

// WithMaxFileSize 设置单个日志文件大小上限（字节）。
// 写入将使文件超过该值时先执行轮转。
func WithMaxFileSize(n int64) IndexOption {
	return func(c *indexConfig) { c.maxFileSize = n }
}

// WithMaxFiles 设置轮转文件的保有数量。稳定状态下目录中存在
// 当前文件加 n 个轮转文件。
func WithMaxFiles(n int) IndexOption {
	return func(c *indexConfig) { c.maxFiles = n }
}

// WithIndexFileMode 设置日志文件创建权限。
func WithIndexFileMode(mode os.FileMode) IndexOption {
	return func(c *indexConfig) { c.fileMode = mode }
}

// WithMinDiskFree 设置磁盘剩余空间阈值（字节）。打开新文件时剩余
// 空间低于该值会通过错误回调上报 [ErrDiskLow]，写入照常进行。
// 0 表示不检查。
func WithMinDiskFree(n uint64) IndexOption {
	return func(c *indexConfig) { c.minDiskFree = n }
}

// WithIndexOnError 设置内部错误回调。
//
// 设计决策: 不使用日志库记录轮转器内部错误，轮转器本身就是日志
// 输出目标，递归写入会导致死锁或栈溢出。回调 panic 被 recover
// 隔离。回调函数不得向同一轮转器写入数据。
func WithIndexOnError(fn func(error)) IndexOption {
	return func(c *indexConfig) { c.onError = fn }
}

// 编译时断言
var _ Rotator = (*IndexRotator)(nil)

// IndexRotator 序号命名的日志轮转器。
//
// 当前文件始终是 <base>.log。轮转时先删除最老的 <base>_<max>.log，
// 再把 <base>_<i>.log 依次改名为 <base>_<i+1>.log，最后把当前文件
// 改名为 <base>_1.log 并新建空的当前文件。序号越小文件越新。
//
// 序号调整是对账式的: 逐个检查存在性，缺失的序号直接跳过。外部
// 删除或进程崩溃留下的缺口不会让轮转停摆，几轮之后目录自行收敛
// 到稳定状态。
type IndexRotator struct {
	dir  string
	base string
	cfg  indexConfig

	mu   sync.Mutex
	f    *os.File
	size int64

	closed    atomic.Bool
	diskLow   atomic.Bool
	rotations atomic.Uint64
}

// NewIndex 创建序号轮转器。filename 为当前日志文件路径，
// 缺少 .log 扩展名时自动补齐。文件延迟到首次写入时创建。
func NewIndex(filename string, opts ...IndexOption) (*IndexRotator, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	cfg := indexConfig{
		maxFileSize: DefaultMaxFileSize,
		maxFiles:    DefaultMaxFiles,
		fileMode:    DefaultIndexFileMode,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.maxFileSize < minMaxFileSize || cfg.maxFileSize > maxMaxFileSize {
		return nil, fmt.Errorf("%w: got %d, want %d~%d", ErrInvalidMaxFileSize, cfg.maxFileSize, int64(minMaxFileSize), int64(maxMaxFileSize))
	}
	if cfg.maxFiles < 1 || cfg.maxFiles > maxMaxFiles {
		return nil, fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidMaxFiles, cfg.maxFiles, maxMaxFiles)
	}

	safePath, err := xfile.SanitizePath(filename)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(safePath)
	base = strings.TrimSuffix(base, logExt)
	if base == "" {
		return nil, fmt.Errorf("%w: %q has no stem", ErrEmptyFilename, filename)
	}
	return &IndexRotator{
		dir:  filepath.Dir(safePath),
		base: base,
		cfg:  cfg,
	}, nil
}

// CurrentPath 返回当前日志文件的路径。
func (r *IndexRotator) CurrentPath() string {
	return filepath.Join(r.dir, r.base+logExt)
}

// IndexPath 返回第 i 个轮转文件的路径。i 越小文件越新。
func (r *IndexRotator) IndexPath(i int) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%d%s", r.base, i, logExt))
}

// Rotations 返回累计轮转次数。
func (r *IndexRotator) Rotations() uint64 {
	return r.rotations.Load()
}

// Write 实现 io.Writer 接口。写入会使当前文件超过大小上限时
// 先执行一次轮转，再把 p 完整写入新文件。
func (r *IndexRotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return 0, ErrClosed
	}
	if r.f == nil {
		if err := r.openLocked(); err != nil {
			return 0, err
		}
	}
	if r.size > 0 && r.size+int64(len(p)) > r.cfg.maxFileSize {
		if err := r.rotateLocked(); err != nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

// Rotate 手动触发一次轮转。
func (r *IndexRotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return ErrClosed
	}
	return r.rotateLocked()
}

// Close 实现 io.Closer 接口。重复调用返回 [ErrClosed]。
func (r *IndexRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// openLocked 打开或创建当前文件，接续已有内容。
func (r *IndexRotator) openLocked() error {
	path := r.CurrentPath()
	if err := xfile.EnsureDir(path); err != nil {
		return err
	}
	r.checkDiskLocked()
	//#nosec G304 -- 路径来自构造时的 SanitizePath
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, r.cfg.fileMode)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.size = info.Size()
	return nil
}

// checkDiskLocked 检查磁盘剩余空间，低于阈值时上报一次 ErrDiskLow。
// 恢复到阈值以上后重置，下次越限会再次上报。
func (r *IndexRotator) checkDiskLocked() {
	if r.cfg.minDiskFree == 0 {
		return
	}
	free, err := xfile.FreeBytes(r.dir)
	if err != nil {
		return
	}
	if free < r.cfg.minDiskFree {
		if r.diskLow.CompareAndSwap(false, true) {
			r.report(fmt.Errorf("%w: free %d, want >= %d", ErrDiskLow, free, r.cfg.minDiskFree))
		}
		return
	}
	r.diskLow.Store(false)
}

// rotateLocked 关闭当前文件，序号整组后移，再新建当前文件。
func (r *IndexRotator) rotateLocked() error {
	if r.f != nil {
		if err := r.f.Close(); err != nil {
			r.report(err)
		}
		r.f = nil
		r.size = 0
	}
	if err := r.shiftLocked(); err != nil {
		return err
	}
	r.rotations.Add(1)
	return r.openLocked()
}

// shiftLocked 执行对账式的序号后移。
func (r *IndexRotator) shiftLocked() error {
	// 最老的槽位先腾出来
	oldest := r.IndexPath(r.cfg.maxFiles)
	if _, err := os.Stat(oldest); err == nil {
		if err := r.retryIO(func() error { return os.Remove(oldest) }); err != nil {
			return err
		}
	}
	// 从老到新逐个后移，缺失的序号跳过
	for i := r.cfg.maxFiles - 1; i >= 1; i-- {
		src := r.IndexPath(i)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := r.retryIO(func() error { return os.Rename(src, r.IndexPath(i+1)) }); err != nil {
			return err
		}
	}
	// 当前文件成为 _1
	cur := r.CurrentPath()
	if _, err := os.Stat(cur); err != nil {
		return nil
	}
	return r.retryIO(func() error { return os.Rename(cur, r.IndexPath(1)) })
}

// retryIO 对瞬时的文件系统错误做有限次重试。
func (r *IndexRotator) retryIO(op func() error) error {
	return retry.New(
		retry.Attempts(ioAttempts),
		retry.Delay(ioRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	).Do(op)
}

// report 通过回调上报内部错误。回调 panic 被隔离。
func (r *IndexRotator) report(err error) {
	if err != nil && r.cfg.onError != nil {
		defer func() { recover() }() //nolint:errcheck // recover 返回值无需检查
		r.cfg.onError(err)
	}
}
