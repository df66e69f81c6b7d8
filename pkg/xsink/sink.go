package xsink

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/omeyang/xalog/pkg/xbuffer"
	"github.com/omeyang/xalog/pkg/xrotate"
)

// Sink 接收整块记录的写出端。
//
// WriteChunk 由调度器串行调用，块内字节在调用返回后会被回收复用，
// 需要留存内容的实现必须自行拷贝。
type Sink interface {
	WriteChunk(*xbuffer.Chunk) error
	Close() error
}

// 编译时断言
var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*WriterSink)(nil)
	_ Sink = (*MultiSink)(nil)
)

// FileSink 把块写入日志轮转器。
type FileSink struct {
	rot xrotate.Rotator
}

// NewFile 创建文件写出端。
func NewFile(rot xrotate.Rotator) (*FileSink, error) {
	if rot == nil {
		return nil, ErrNilRotator
	}
	return &FileSink{rot: rot}, nil
}

// WriteChunk 实现 Sink 接口。
func (s *FileSink) WriteChunk(ch *xbuffer.Chunk) error {
	_, err := s.rot.Write(ch.Bytes())
	return err
}

// Close 关闭底层轮转器。
func (s *FileSink) Close() error {
	return s.rot.Close()
}

// Rotator 返回底层轮转器，供崩溃路径直接写入。
func (s *FileSink) Rotator() xrotate.Rotator {
	return s.rot
}

// WriterSink 把块写入任意 io.Writer。
//
// Close 不关闭底层 writer: 典型目标是 os.Stdout，其生命周期
// 不归本写出端管理。
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter 创建 io.Writer 写出端。
func NewWriter(w io.Writer) (*WriterSink, error) {
	if w == nil {
		return nil, ErrNilWriter
	}
	return &WriterSink{w: w}, nil
}

// NewStdout 创建标准输出写出端。
func NewStdout() *WriterSink {
	return &WriterSink{w: os.Stdout}
}

// WriteChunk 实现 Sink 接口。
func (s *WriterSink) WriteChunk(ch *xbuffer.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(ch.Bytes())
	return err
}

// Close 实现 Sink 接口，不关闭底层 writer。
func (s *WriterSink) Close() error { return nil }

// MultiSink 扇出到多个写出端。
//
// 单个写出端失败不中断其余交付，所有错误经 errors.Join 合并返回。
type MultiSink struct {
	sinks []Sink
}

// NewMulti 创建扇出写出端，nil 成员被忽略。
func NewMulti(sinks ...Sink) *MultiSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept}
}

// WriteChunk 实现 Sink 接口。
func (m *MultiSink) WriteChunk(ch *xbuffer.Chunk) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.WriteChunk(ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close 关闭全部写出端。
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
