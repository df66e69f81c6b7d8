package xrecord

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// TimeOffset 时间戳占位区域在记录中的起始偏移（级别字符之后）。
	TimeOffset = 1

	// TimeWidth 时间戳区域的宽度，对应格式 "MMDD HH:MM:SS.mmm"。
	TimeWidth = 17

	// MinRecordCap 单条记录上限的最小允许值。
	// 至少要放得下记录头、一小段消息和结尾换行。
	MinRecordCap = 64

	// DefaultLocCacheSize 调用点缓存的默认容量。
	DefaultLocCacheSize = 1024
)

const (
	// timePlaceholder 时间戳占位内容，宽度与 TimeWidth 一致。
	// 真实时间由缓冲层在 append 临界区内经 Stamp 回填。
	timePlaceholder = "0000 00:00:00.000"

	// unknownCallsite 调用栈解析失败时的占位调用点。
	unknownCallsite = "???:0"

	// initialRecordSize 池中记录缓冲区的初始容量。
	initialRecordSize = 512

	// maxPooledRecordSize 超过该容量的缓冲区不放回池，防止池长期持有大块内存。
	maxPooledRecordSize = 64 * 1024
)

// Record 一条装配完成的记录。
//
// 底层缓冲区来自 Assembler 的内部池，内容被拷贝进缓冲区之后
// 必须调用 [Assembler.Release] 归还，之后不得再访问。
type Record struct {
	buf []byte
}

// Bytes 返回记录的字节内容（含结尾换行）。
func (r *Record) Bytes() []byte { return r.buf }

// Len 返回记录长度。
func (r *Record) Len() int { return len(r.buf) }

// Assembler 把级别、调用点和消息装配成固定格式的记录字节。
//
// 并发安全：Build/Callsite/Release 可被任意 goroutine 同时调用。
type Assembler struct {
	maxRecord int
	locCache  *lru.Cache[uintptr, string]
	pool      sync.Pool
}

// Option 配置 Assembler 的选项函数。
type Option func(*options)

type options struct {
	locCacheSize int
}

// WithLocCacheSize 设置调用点缓存容量。
// n < 1 时使用默认值 DefaultLocCacheSize。
func WithLocCacheSize(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.locCacheSize = n
		}
	}
}

// NewAssembler 创建记录装配器。
//
// maxRecord 是单条记录（含头部和换行）的字节上限，
// 小于 MinRecordCap 时返回 ErrRecordCapTooSmall。
func NewAssembler(maxRecord int, opts ...Option) (*Assembler, error) {
	if maxRecord < MinRecordCap {
		return nil, fmt.Errorf("%w: got %d, want >= %d", ErrRecordCapTooSmall, maxRecord, MinRecordCap)
	}

	o := &options{locCacheSize: DefaultLocCacheSize}
	for _, opt := range opts {
		opt(o)
	}

	cache, err := lru.New[uintptr, string](o.locCacheSize)
	if err != nil {
		return nil, fmt.Errorf("xrecord: create callsite cache: %w", err)
	}

	a := &Assembler{
		maxRecord: maxRecord,
		locCache:  cache,
	}
	a.pool.New = func() any {
		return &Record{buf: make([]byte, 0, initialRecordSize)}
	}
	return a, nil
}

// MaxRecord 返回单条记录的字节上限。
func (a *Assembler) MaxRecord() int { return a.maxRecord }

// Callsite 解析调用点为 "文件:行号" 形式（文件取 base 名）。
//
// skip 为需要跳过的栈帧数：0 表示 Callsite 的直接调用方。
// 解析结果按 pc 缓存，同一调用点的重复解析只付一次符号化开销。
//
//go:noinline
func (a *Assembler) Callsite(skip int) string {
	var pcs [1]uintptr
	// skip+2: 0 是 Callers 自身，1 是 Callsite，2 起才是调用方
	if runtime.Callers(skip+2, pcs[:]) < 1 {
		return unknownCallsite
	}
	pc := pcs[0]
	if loc, ok := a.locCache.Get(pc); ok {
		return loc
	}

	frames := runtime.CallersFrames(pcs[:])
	fr, _ := frames.Next()
	if fr.File == "" {
		return unknownCallsite
	}
	loc := filepath.Base(fr.File) + ":" + strconv.Itoa(fr.Line)
	a.locCache.Add(pc, loc)
	return loc
}

// Build 装配一条记录。
//
// 输出形如 `I0000 00:00:00.000 1234 main.go:42] message\n`，
// 其中时间戳为占位符，由缓冲层在 append 时回填。
// 消息尾部的换行被剥除后重新追加恰好一个换行；
// 超过上限的记录截断到上限，结尾换行保留。
func (a *Assembler) Build(level Level, loc, msg string) *Record {
	rec := a.pool.Get().(*Record)
	buf := rec.buf[:0]

	for len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}
	if loc == "" {
		loc = unknownCallsite
	}

	buf = append(buf, level.Char())
	buf = append(buf, timePlaceholder...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(threadID()), 10)
	buf = append(buf, ' ')
	buf = append(buf, loc...)
	buf = append(buf, ']', ' ')
	buf = append(buf, msg...)
	buf = append(buf, '\n')

	if len(buf) > a.maxRecord {
		buf = append(buf[:a.maxRecord-1], '\n')
	}

	rec.buf = buf
	return rec
}

// Release 归还记录缓冲区。
// 容量超过 maxPooledRecordSize 的缓冲区直接丢弃，交给 GC 回收。
func (a *Assembler) Release(rec *Record) {
	if rec == nil || cap(rec.buf) > maxPooledRecordSize {
		return
	}
	a.pool.Put(rec)
}

// Stamp 把时间 t 以 "MMDD HH:MM:SS.mmm" 格式写入 b 的前 TimeWidth 字节。
//
// b 长度不足 TimeWidth 时不做任何写入。调用方负责传入记录中
// 从 TimeOffset 开始的切片。
func Stamp(b []byte, t time.Time) {
	if len(b) < TimeWidth {
		return
	}
	put2(b[0:], int(t.Month()))
	put2(b[2:], t.Day())
	b[4] = ' '
	hour, minute, sec := t.Clock()
	put2(b[5:], hour)
	b[7] = ':'
	put2(b[8:], minute)
	b[10] = ':'
	put2(b[11:], sec)
	b[13] = '.'
	put3(b[14:], t.Nanosecond()/1e6)
}

func put2(b []byte, v int) {
	b[0] = '0' + byte(v/10%10)
	b[1] = '0' + byte(v%10)
}

func put3(b []byte, v int) {
	b[0] = '0' + byte(v/100%10)
	b[1] = '0' + byte(v/10%10)
	b[2] = '0' + byte(v%10)
}
