// Package xbuffer 实现日志引擎的双缓冲层。
//
// 两个字节块（Chunk）在 {活动, 刷写} 两个角色间轮换：任意多个生产者
// 在互斥锁保护的短临界区内向活动块追加记录；调度方独占地交换角色，
// 把装满的块整体取走写盘，写完归还后成为下一轮的备用块。
// 生产者永远不会触碰刷写中的块，也永远不会因 I/O 阻塞。
//
// # 时间戳回填
//
// 记录的时间戳在 append 临界区内取值并回填（经注入的 Stamper），
// 因此块内字节序即时间序，落盘记录严格按时间递增，即使生产者并发提交。
//
// # 丢弃策略（drop-half）
//
// 当活动块、在途块与新记录的字节总量将超过上限时，从活动块头部按
// 记录边界丢弃至少一半的旧记录（需要时更多），然后追加一条合成的
// 告警记录（"N bytes dropped"），再继续本次 append。每次丢弃事件
// 恰好产生一条告警。记录从不被拦腰截断，丢弃以整条记录为单位。
//
// 当写盘方长时间停滞、在途字节居高不下时，清空活动块仍可能无法满足
// 总量上限；此时 append 仍然放行（生产者不等待 I/O），并累计一次
// overrun 计数供上层观测。
//
// # 并发契约
//
// Append 可被任意 goroutine 并发调用；SwapAndTake 与 Release 只允许
// 单一调度方串行调用。高水位信号通过容量为 1 的通道发出，发送永不阻塞。
package xbuffer
