package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// 默认加载参数。
const (
	defaultDelim = "."
	defaultTag   = "koanf"
)

// Config 配置实例。
//
// 基础读取操作直接使用 Client() 返回的 koanf 实例，接口只承载
// 增值能力: 反序列化、重载与监视。
type Config interface {
	// Client 返回底层的 koanf 实例。
	Client() *koanf.Koanf

	// Unmarshal 把指定路径的配置反序列化到目标结构体。
	// path 为空字符串时反序列化整个配置。
	Unmarshal(path string, target any) error

	// Reload 重新加载配置文件，并发安全。从字节数据创建的
	// 配置返回 [ErrNotReloadable]。
	Reload() error

	// Path 返回配置文件路径，从字节数据创建时为空。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

type fileConfig struct {
	mu      sync.RWMutex
	k       *koanf.Koanf
	path    string
	format  Format
	isBytes bool
}

// New 从文件创建配置实例，格式按扩展名检测（.yaml/.yml/.json）。
func New(path string) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //#nosec G304 -- 配置路径由调用方给定
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k := koanf.New(defaultDelim)
	if err := loadData(k, data, format); err != nil {
		return nil, err
	}
	return &fileConfig{k: k, path: path, format: format}, nil
}

// NewFromBytes 从字节数据创建配置实例，格式需显式指定。
// 空数据创建空配置，Unmarshal 得到目标结构体的零值。
func NewFromBytes(data []byte, format Format) (Config, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}
	k := koanf.New(defaultDelim)
	if len(data) > 0 {
		if err := loadData(k, data, format); err != nil {
			return nil, err
		}
	}
	return &fileConfig{k: k, format: format, isBytes: true}, nil
}

func (c *fileConfig) Client() *koanf.Koanf {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k
}

func (c *fileConfig) Unmarshal(path string, target any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: defaultTag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

func (c *fileConfig) Reload() error {
	if c.isBytes {
		return ErrNotReloadable
	}
	data, err := os.ReadFile(c.path) //#nosec G304 -- 路径来自 New
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	fresh := koanf.New(defaultDelim)
	if err := loadData(fresh, data, c.format); err != nil {
		return err
	}
	c.mu.Lock()
	c.k = fresh
	c.mu.Unlock()
	return nil
}

func (c *fileConfig) Path() string   { return c.path }
func (c *fileConfig) Format() Format { return c.format }

func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func isValidFormat(format Format) bool {
	return format == FormatYAML || format == FormatJSON
}

func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return ErrUnsupportedFormat
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}
