package xsched

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xalog/pkg/xbuffer"
)

// Target 调度器驱动的缓冲端点。*xbuffer.DualBuffer 直接满足该接口。
type Target interface {
	SwapAndTake() *xbuffer.Chunk
	Release(*xbuffer.Chunk)
	HighWater() <-chan struct{}
	BufferedBytes() int
}

// ChunkWriter 接收整块记录的写出端。
type ChunkWriter interface {
	WriteChunk(*xbuffer.Chunk) error
}

// maxDrainRounds 一次 Drain 内最多执行的刷写轮数。每轮都会清空
// 当时的活动块，多轮用于追赶排空期间仍在追加的生产者。
const maxDrainRounds = 8

// Option 配置 Scheduler 的可选项。
type Option func(*Scheduler)

// WithOnError 设置写出失败时的回调。回调在调度 goroutine 内执行。
func WithOnError(fn func(error)) Option {
	return func(s *Scheduler) { s.onError = fn }
}

// Scheduler 刷写调度器。
//
// 设计决策: 调度器是 SwapAndTake/Release 的唯一调用方，缓冲层因此
// 无需支持并发交换。周期与高水位两类触发共用同一条刷写路径，
// 高水位提前刷写后重置周期计时，避免紧随其后的空刷。
type Scheduler struct {
	buf      Target
	sink     ChunkWriter
	interval time.Duration
	onError  func(error)

	state    atomic.Int32
	flushes  atomic.Uint64
	started  atomic.Bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
	drainReq chan chan struct{}
}

// New 创建调度器。interval 为周期刷写的间隔。
func New(buf Target, sink ChunkWriter, interval time.Duration, opts ...Option) (*Scheduler, error) {
	if buf == nil {
		return nil, ErrNilTarget
	}
	if sink == nil {
		return nil, ErrNilWriter
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidInterval, interval)
	}
	s := &Scheduler{
		buf:      buf,
		sink:     sink,
		interval: interval,
		done:     make(chan struct{}),
		drainReq: make(chan chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start 启动调度循环。ctx 取消等价于调用 Stop。重复启动返回
// ErrAlreadyStarted。
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)
	return nil
}

// Stop 停止调度器并等待最后一次强制刷写完成。可重复调用。
func (s *Scheduler) Stop() error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	s.stopOnce.Do(func() { s.cancel() })
	<-s.done
	return nil
}

// Drain 强制刷写直到缓冲排空或轮数耗尽，等待受 ctx 期限约束。
// 供崩溃路径在进程退出前抢救缓冲内容。
func (s *Scheduler) Drain(ctx context.Context) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	ack := make(chan struct{})
	select {
	case s.drainReq <- ack:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State 返回当前状态。
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Flushes 返回累计刷写次数（含空刷）。
func (s *Scheduler) Flushes() uint64 {
	return s.flushes.Load()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	defer s.state.Store(int32(StateIdle))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.state.Store(int32(StateWaiting))
		select {
		case <-ctx.Done():
			s.flushOnce()
			return
		case <-ticker.C:
			s.flushOnce()
		case <-s.buf.HighWater():
			s.flushOnce()
			ticker.Reset(s.interval)
		case ack := <-s.drainReq:
			s.drain()
			close(ack)
			ticker.Reset(s.interval)
		}
	}
}

func (s *Scheduler) flushOnce() {
	s.flushes.Add(1)
	s.state.Store(int32(StateSwapping))
	ch := s.buf.SwapAndTake()
	if ch == nil {
		return
	}
	s.state.Store(int32(StateWriting))
	if err := s.sink.WriteChunk(ch); err != nil && s.onError != nil {
		s.onError(err)
	}
	s.buf.Release(ch)
}

func (s *Scheduler) drain() {
	for i := 0; i < maxDrainRounds; i++ {
		s.flushOnce()
		if s.buf.BufferedBytes() == 0 {
			return
		}
	}
}
