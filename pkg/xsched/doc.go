// Package xsched 实现刷写调度器，双缓冲与写出端之间唯一的搬运者。
//
// 调度器在独立 goroutine 中循环等待两类触发：刷写周期到期，或缓冲
// 高水位信号。任一触发到来时执行一次完整的刷写：交换缓冲取走旧活动
// 块，整块交给写出端，写完归还。交换在缓冲锁内瞬时完成，生产者只在
// 这一瞬间与调度器竞争。
//
// 状态机: Idle -> Waiting -> Swapping -> Writing -> Waiting ...
// Stop 幂等，返回前执行最后一次强制刷写，保证已缓冲的记录落盘。
// Drain 供崩溃路径使用，在调用方给定的期限内尽力把缓冲刷空。
package xsched
