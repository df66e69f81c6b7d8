package xsampling

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Counter 单个调用点的发射计数器。
//
// 计数器单调递增，进程生命周期内从不重置。零值可用。
// EveryN 与 FirstN 共享同一计数，一个调用点只应使用其中一种策略。
type Counter struct {
	count atomic.Uint64
}

// EveryN 递增计数并报告本次是否应当发射（每 n 次发射 1 次）。
//
// 判定基于递增前的旧值：(旧值 % n) == 0，因此首次调用总是发射，
// 之后在第 n+1、2n+1…… 次发射。n == 0 时视为全发射。
//
// n 为 2 的幂时结果精确（含计数溢出回绕）；否则并发递增可能在边界处
// 偶尔多发或漏发，这是接受的不精确，计数路径保持无锁。
func (c *Counter) EveryN(n uint64) bool {
	if n == 0 {
		return true
	}
	count := c.count.Add(1)
	return (count-1)%n == 0
}

// FirstN 递增计数并报告本次是否应当发射（只发射前 n 次）。
//
// 判定基于递增前的旧值：旧值 < n。计数越过 n 后继续递增，
// 但不会再发射。n == 0 时从不发射。
func (c *Counter) FirstN(n uint64) bool {
	count := c.count.Add(1)
	return count-1 < n
}

// Count 返回当前计数值。
func (c *Counter) Count() uint64 {
	return c.count.Load()
}

// Registry 调用点到计数器的注册表。
//
// 计数器在调用点第一次出现时创建，此后永不淘汰或重置，
// 与进程同生命周期。零值可用。
type Registry struct {
	sites sync.Map // uint64 -> *Counter
}

// NewRegistry 创建调用点注册表。
func NewRegistry() *Registry {
	return &Registry{}
}

// Site 返回调用点 loc（"文件:行号" 形式）对应的计数器。
// 键由 xxhash 计算，同一调用点总是返回同一个计数器实例。
func (r *Registry) Site(loc string) *Counter {
	return r.SiteByKey(xxhash.Sum64String(loc))
}

// SiteByKey 返回预哈希键对应的计数器，键相同则实例相同。
func (r *Registry) SiteByKey(key uint64) *Counter {
	if v, ok := r.sites.Load(key); ok {
		return v.(*Counter)
	}
	v, _ := r.sites.LoadOrStore(key, &Counter{})
	return v.(*Counter)
}

// Size 返回已注册的调用点数量。
// 遍历统计，复杂度与调用点数量成正比，仅用于观测。
func (r *Registry) Size() int {
	n := 0
	r.sites.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
