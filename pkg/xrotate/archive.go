package xrotate

import (
	"fmt"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/omeyang/xalog/pkg/xfile"
)

// 归档轮转器默认配置值
const (
	// DefaultMaxSizeMB 默认单个日志文件最大大小（MB）
	DefaultMaxSizeMB = 500

	// DefaultMaxBackups 默认保留的备份文件数量
	DefaultMaxBackups = 7

	// DefaultMaxAgeDays 默认保留备份的天数
	DefaultMaxAgeDays = 30

	// maxSizeMB 单个日志文件大小上限（10 GB）
	maxSizeMB = 10240

	// maxBackups 备份文件数量上限
	maxBackups = 1024

	// maxAgeDays 备份保留天数上限（约 10 年）
	maxAgeDays = 3650
)

type archiveConfig struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
	localTime  bool
}

// ArchiveOption 归档轮转器配置选项函数
type ArchiveOption func(*archiveConfig)

// WithMaxSizeMB 设置单个日志文件最大大小（MB）
func WithMaxSizeMB(mb int) ArchiveOption {
	return func(c *archiveConfig) { c.maxSizeMB = mb }
}

// WithMaxBackups 设置保留的备份文件数量。0 表示不按数量清理，
// 但仍受 MaxAge 约束。
func WithMaxBackups(n int) ArchiveOption {
	return func(c *archiveConfig) { c.maxBackups = n }
}

// WithMaxAge 设置保留备份的天数。0 表示不按天数清理，
// 但仍受 MaxBackups 约束。
func WithMaxAge(days int) ArchiveOption {
	return func(c *archiveConfig) { c.maxAgeDays = days }
}

// WithCompress 设置是否对备份文件做 gzip 压缩
func WithCompress(compress bool) ArchiveOption {
	return func(c *archiveConfig) { c.compress = compress }
}

// WithLocalTime 设置备份文件名是否使用本地时间，false 时使用 UTC
func WithLocalTime(local bool) ArchiveOption {
	return func(c *archiveConfig) { c.localTime = local }
}

// 编译时断言
var _ Rotator = (*ArchiveRotator)(nil)

// ArchiveRotator 基于 lumberjack 的时间戳归档轮转器。
//
// 备份文件以轮转时刻命名（如 app-2026-08-23T10-04-05.000.log），
// 支持按数量与天数双重清理以及 gzip 压缩，适合长期留存的场景。
// 写入并发安全由 lumberjack 内部保证。
type ArchiveRotator struct {
	logger *lumberjack.Logger
	closed atomic.Bool
}

// NewArchive 创建归档轮转器。filename 为当前日志文件路径，
// 不存在的父目录以 0750 自动创建。
func NewArchive(filename string, opts ...ArchiveOption) (*ArchiveRotator, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	cfg := archiveConfig{
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
		compress:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := validateArchiveConfig(&cfg); err != nil {
		return nil, err
	}

	safePath, err := xfile.SanitizePath(filename)
	if err != nil {
		return nil, err
	}
	if err := xfile.EnsureDir(safePath); err != nil {
		return nil, err
	}
	return &ArchiveRotator{
		logger: &lumberjack.Logger{
			Filename:   safePath,
			MaxSize:    cfg.maxSizeMB,
			MaxBackups: cfg.maxBackups,
			MaxAge:     cfg.maxAgeDays,
			Compress:   cfg.compress,
			LocalTime:  cfg.localTime,
		},
	}, nil
}

func validateArchiveConfig(cfg *archiveConfig) error {
	if cfg.maxSizeMB <= 0 || cfg.maxSizeMB > maxSizeMB {
		return fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidMaxSize, cfg.maxSizeMB, maxSizeMB)
	}
	if cfg.maxBackups < 0 || cfg.maxBackups > maxBackups {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxBackups, cfg.maxBackups, maxBackups)
	}
	if cfg.maxAgeDays < 0 || cfg.maxAgeDays > maxAgeDays {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxAge, cfg.maxAgeDays, maxAgeDays)
	}
	if cfg.maxBackups == 0 && cfg.maxAgeDays == 0 {
		return fmt.Errorf("%w: MaxBackups and MaxAge cannot both be 0", ErrNoCleanupPolicy)
	}
	return nil
}

// Write 实现 io.Writer 接口
func (r *ArchiveRotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	n, err := r.logger.Write(p)
	if err != nil {
		// 设计决策: Write 通过 closed 前置检查后，Close 可能在
		// logger.Write 执行期间完成。后置检查确保调用者始终得到
		// ErrClosed 而非底层 I/O 错误。
		if r.closed.Load() {
			return n, ErrClosed
		}
		return n, err
	}
	return n, nil
}

// Rotate 手动触发轮转
func (r *ArchiveRotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.logger.Rotate(); err != nil {
		if r.closed.Load() {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Close 实现 io.Closer 接口
//
// 设计决策: Close 使用 CAS 原语标记关闭状态，首次 Close 失败后
// 不重置标记，保证关闭后不再有写入到达底层 logger。
func (r *ArchiveRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	return r.logger.Close()
}
