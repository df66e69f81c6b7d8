package xbuffer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// MinBufferSize 缓冲区总容量下限。
	MinBufferSize = 4 * 1024

	// DefaultHighWaterRatio 默认高水位比例。活动块占用达到
	// 总容量的该比例时向调度方发出提前刷写信号。
	DefaultHighWaterRatio = 0.5

	// initialChunkSize 单块初始容量，不足时按需增长。
	initialChunkSize = 64 * 1024

	// noticeReserve 为丢弃告警记录预留的字节数，用于丢弃量计算。
	noticeReserve = 160
)

// Stamper 在 append 临界区内把时间写入记录的时间戳区域。
// dst 从时间戳起始偏移处开始，长度不超过该条记录的剩余字节。
type Stamper func(dst []byte, t time.Time)

// DropNoticeFunc 在一次丢弃事件后构造告警记录。参数为被丢弃的字节数，
// 返回一条完整记录及其时间戳偏移（offset < 0 表示无需回填时间）。
//
// 回调在缓冲锁内执行，必须快速返回，且不得再调用本缓冲的任何方法。
type DropNoticeFunc func(dropped int) (rec []byte, stampOffset int)

// Option 配置 DualBuffer 的可选项。
type Option func(*DualBuffer)

// WithHighWaterRatio 设置高水位比例，取值范围 (0, 1]。
func WithHighWaterRatio(r float64) Option {
	return func(b *DualBuffer) { b.highWaterRatio = r }
}

// WithStamper 注入时间戳回填函数。
func WithStamper(s Stamper) Option {
	return func(b *DualBuffer) { b.stamp = s }
}

// WithDropNotice 注入丢弃告警记录的构造函数。
func WithDropNotice(fn DropNoticeFunc) Option {
	return func(b *DualBuffer) { b.onDrop = fn }
}

// DualBuffer 双缓冲记录队列。
//
// 设计决策: 容量核算覆盖"活动块字节 + 已取走未归还的在途字节"，
// 而不只是活动块本身。否则写盘停滞期间两块各自逼近上限，
// 实际驻留内存可达配置值的两倍。丢弃只作用于活动块，在途块
// 已交给写盘方，其内容不可再撤回。
type DualBuffer struct {
	mu       sync.Mutex
	active   *Chunk
	standby  *Chunk // 被取走期间为 nil
	inflight int    // 已取走未归还的字节数

	maxTotal       int
	highWater      int
	highWaterRatio float64
	stamp          Stamper
	onDrop         DropNoticeFunc

	kick chan struct{}

	dropEvents   atomic.Uint64
	droppedBytes atomic.Uint64
	overruns     atomic.Uint64
}

// New 创建双缓冲。maxTotal 为活动与在途字节的总量上限。
func New(maxTotal int, opts ...Option) (*DualBuffer, error) {
	if maxTotal < MinBufferSize {
		return nil, fmt.Errorf("%w: got %d, want >= %d", ErrBufferTooSmall, maxTotal, MinBufferSize)
	}
	b := &DualBuffer{
		maxTotal:       maxTotal,
		highWaterRatio: DefaultHighWaterRatio,
		kick:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.highWaterRatio <= 0 || b.highWaterRatio > 1 {
		return nil, fmt.Errorf("%w: got %v, want in (0, 1]", ErrInvalidHighWater, b.highWaterRatio)
	}
	b.highWater = int(float64(maxTotal) * b.highWaterRatio)
	if b.highWater < 1 {
		b.highWater = 1
	}
	initial := initialChunkSize
	if initial > maxTotal {
		initial = maxTotal
	}
	b.active = newChunk(initial)
	b.standby = newChunk(initial)
	return b, nil
}

// Append 追加一条完整记录。rec 的内容被拷贝进活动块，调用返回后
// 可复用。stampOffset 为记录内时间戳区域的偏移，小于 0 表示该记录
// 不需要回填时间。
//
// 时间在临界区内取值，块内字节序即时间序。容量不足时触发 drop-half
// 丢弃后继续；清空活动块仍不足时照常放行并累计 overrun。
func (b *DualBuffer) Append(rec []byte, stampOffset int) {
	if len(rec) == 0 {
		return
	}
	b.mu.Lock()
	if b.active.Len()+b.inflight+len(rec) > b.maxTotal {
		b.dropLocked(len(rec))
	}
	b.appendLocked(rec, stampOffset)
	hw := b.active.Len() >= b.highWater
	b.mu.Unlock()

	if hw {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

func (b *DualBuffer) appendLocked(rec []byte, stampOffset int) {
	start := b.active.append(rec)
	if stampOffset >= 0 && b.stamp != nil {
		b.stamp(b.active.buf[start+stampOffset:start+len(rec)], time.Now())
	}
}

// dropLocked 执行一次丢弃事件: 从活动块头部按记录边界丢弃至少一半，
// 需要容纳新记录与告警记录时丢弃更多，随后追加告警记录。
func (b *DualBuffer) dropLocked(incoming int) {
	cur := b.active.Len()
	if cur == 0 {
		// 活动块本就为空，超限完全来自在途字节，无可丢弃。
		b.overruns.Add(1)
		return
	}
	need := incoming + noticeReserve
	keepMax := b.maxTotal - b.inflight - need
	if keepMax < 0 {
		keepMax = 0
	}
	minDrop := cur / 2
	if cur-keepMax > minDrop {
		minDrop = cur - keepMax
	}
	dropped := b.active.dropOldest(minDrop)
	b.dropEvents.Add(1)
	b.droppedBytes.Add(uint64(dropped))
	if b.active.Len()+b.inflight+incoming > b.maxTotal {
		b.overruns.Add(1)
	}
	if b.onDrop != nil {
		if rec, off := b.onDrop(dropped); len(rec) > 0 {
			b.appendLocked(rec, off)
		}
	}
}

// SwapAndTake 交换活动块与备用块并取走旧活动块。活动块为空或上一块
// 尚未归还时返回 nil。只允许单一调度方调用。
func (b *DualBuffer) SwapAndTake() *Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.standby == nil || b.active.Len() == 0 {
		return nil
	}
	out := b.active
	b.active = b.standby
	b.standby = nil
	b.inflight = out.Len()
	return out
}

// Release 归还取走的块。块内容被清空并成为下一轮的备用块。
func (b *DualBuffer) Release(c *Chunk) {
	if c == nil {
		return
	}
	c.reset()
	b.mu.Lock()
	b.standby = c
	b.inflight = 0
	b.mu.Unlock()
}

// HighWater 返回高水位信号通道。活动块占用达到高水位时收到信号，
// 通道容量为 1，信号可能被合并。
func (b *DualBuffer) HighWater() <-chan struct{} { return b.kick }

// BufferedBytes 返回当前驻留字节总量（活动块 + 在途块）。
func (b *DualBuffer) BufferedBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active.Len() + b.inflight
}

// DropEvents 返回累计丢弃事件次数。
func (b *DualBuffer) DropEvents() uint64 { return b.dropEvents.Load() }

// DroppedBytes 返回累计丢弃字节数。
func (b *DualBuffer) DroppedBytes() uint64 { return b.droppedBytes.Load() }

// Overruns 返回容量上限无法维持仍放行的累计次数。
func (b *DualBuffer) Overruns() uint64 { return b.overruns.Load() }
