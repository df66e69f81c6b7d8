package xalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/omeyang/xalog/pkg/xbuffer"
	"github.com/omeyang/xalog/pkg/xconf"
	"github.com/omeyang/xalog/pkg/xrecord"
)

// 配置默认值。
const (
	DefaultLogDir           = "logs"
	DefaultMinLogLevel      = 0
	DefaultMaxLogSize       = 16 * 1024
	DefaultMaxLogFileSize   = 256 * 1024 * 1024
	DefaultMaxLogFileNum    = 8
	DefaultMaxLogBufferSize = 32 * 1024 * 1024
	DefaultLogFlushMs       = 128
)

// 文件扩展名。
const (
	logExt   = ".log"
	fatalExt = ".fatal"
)

// Config 引擎配置。
//
// 零值字段在 [New] 时落到默认值，负值视为非法。引擎启动后配置
// 不可变，运行期唯一的动态量是最低记录级别（SetMinLevel）。
type Config struct {
	// LogDir 日志目录，默认 "logs"。
	LogDir string `koanf:"log_dir" json:"log_dir" yaml:"log_dir"`

	// LogFileName 日志文件名，缺省为程序名。没有 .log 后缀时自动补上。
	LogFileName string `koanf:"log_file_name" json:"log_file_name" yaml:"log_file_name"`

	// MinLogLevel 最低记录级别，0~4 对应 Debug~Fatal。
	MinLogLevel int `koanf:"min_log_level" json:"min_log_level" yaml:"min_log_level"`

	// MaxLogSize 单条记录的字节上限，超限记录截断。
	// 必须不大于 MaxLogBufferSize 的一半。
	MaxLogSize int `koanf:"max_log_size" json:"max_log_size" yaml:"max_log_size"`

	// MaxLogFileSize 单个日志文件的字节上限，超过时触发轮转。
	MaxLogFileSize int64 `koanf:"max_log_file_size" json:"max_log_file_size" yaml:"max_log_file_size"`

	// MaxLogFileNum 轮转文件的保留个数。
	MaxLogFileNum int `koanf:"max_log_file_num" json:"max_log_file_num" yaml:"max_log_file_num"`

	// MaxLogBufferSize 内存缓冲的字节上限（活动块与在途块合计）。
	MaxLogBufferSize int `koanf:"max_log_buffer_size" json:"max_log_buffer_size" yaml:"max_log_buffer_size"`

	// LogFlushMs 周期刷写间隔，毫秒。
	LogFlushMs int `koanf:"log_flush_ms" json:"log_flush_ms" yaml:"log_flush_ms"`

	// Cout 为 true 时每个块同时复制到标准输出。
	Cout bool `koanf:"cout" json:"cout" yaml:"cout"`

	// AlsoLogToLocal 注册写回调时是否仍然写本地文件。
	AlsoLogToLocal bool `koanf:"also_log_to_local" json:"also_log_to_local" yaml:"also_log_to_local"`
}

// DefaultConfig 返回全默认配置。
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// withDefaults 把零值字段填充为默认值并归一化文件名。
func (c Config) withDefaults() Config {
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.LogFileName == "" {
		c.LogFileName = filepath.Base(os.Args[0])
	}
	if !strings.HasSuffix(c.LogFileName, logExt) {
		c.LogFileName += logExt
	}
	if c.MaxLogSize == 0 {
		c.MaxLogSize = DefaultMaxLogSize
	}
	if c.MaxLogFileSize == 0 {
		c.MaxLogFileSize = DefaultMaxLogFileSize
	}
	if c.MaxLogFileNum == 0 {
		c.MaxLogFileNum = DefaultMaxLogFileNum
	}
	if c.MaxLogBufferSize == 0 {
		c.MaxLogBufferSize = DefaultMaxLogBufferSize
	}
	if c.LogFlushMs == 0 {
		c.LogFlushMs = DefaultLogFlushMs
	}
	return c
}

// Validate 校验配置。期望在 withDefaults 之后调用。
func (c *Config) Validate() error {
	if c.MinLogLevel < int(xrecord.LevelDebug) || c.MinLogLevel > int(xrecord.LevelFatal) {
		return fmt.Errorf("%w: min_log_level %d out of range [0,4]", ErrInvalidConfig, c.MinLogLevel)
	}
	if base := filepath.Base(c.LogFileName); base != c.LogFileName || base == "." || base == string(filepath.Separator) {
		return fmt.Errorf("%w: log_file_name %q must be a bare file name", ErrInvalidConfig, c.LogFileName)
	}
	if c.MaxLogSize < xrecord.MinRecordCap {
		return fmt.Errorf("%w: max_log_size %d below minimum %d", ErrInvalidConfig, c.MaxLogSize, xrecord.MinRecordCap)
	}
	if c.MaxLogBufferSize < xbuffer.MinBufferSize {
		return fmt.Errorf("%w: max_log_buffer_size %d below minimum %d", ErrInvalidConfig, c.MaxLogBufferSize, xbuffer.MinBufferSize)
	}
	if c.MaxLogSize > c.MaxLogBufferSize/2 {
		return fmt.Errorf("%w: max_log_size %d exceeds half of max_log_buffer_size %d",
			ErrInvalidConfig, c.MaxLogSize, c.MaxLogBufferSize)
	}
	if c.MaxLogFileSize < 0 {
		return fmt.Errorf("%w: max_log_file_size %d is negative", ErrInvalidConfig, c.MaxLogFileSize)
	}
	if c.MaxLogFileNum < 0 {
		return fmt.Errorf("%w: max_log_file_num %d is negative", ErrInvalidConfig, c.MaxLogFileNum)
	}
	if c.LogFlushMs < 0 {
		return fmt.Errorf("%w: log_flush_ms %d is negative", ErrInvalidConfig, c.LogFlushMs)
	}
	return nil
}

// FilePath 返回当前日志文件的完整路径。
func (c *Config) FilePath() string {
	return filepath.Join(c.LogDir, c.LogFileName)
}

// FatalFilePath 返回致命记录文件的完整路径，后缀 .fatal。
func (c *Config) FatalFilePath() string {
	name := strings.TrimSuffix(c.LogFileName, logExt) + fatalExt
	return filepath.Join(c.LogDir, name)
}

// FlushInterval 返回周期刷写间隔。
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.LogFlushMs) * time.Millisecond
}

// LoadConfig 从配置文件加载引擎配置，格式按扩展名检测。
// 文件中缺失的键保持默认值。
func LoadConfig(path string) (Config, error) {
	loader, err := xconf.New(path)
	if err != nil {
		return Config{}, err
	}
	return unmarshalConfig(loader)
}

// ParseConfig 从字节数据解析引擎配置。
func ParseConfig(data []byte, format xconf.Format) (Config, error) {
	loader, err := xconf.NewFromBytes(data, format)
	if err != nil {
		return Config{}, err
	}
	return unmarshalConfig(loader)
}

func unmarshalConfig(loader xconf.Config) (Config, error) {
	var cfg Config
	if err := loader.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
