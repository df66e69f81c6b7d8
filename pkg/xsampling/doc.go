// Package xsampling 提供日志发射的采样控制。
//
// 核心是调用点计数器：每个日志调用点持有一个进程级的 64 位原子计数器，
// 支持 every-N（每 N 条发射 1 条）和 first-N（只发射前 N 条）两种策略。
// 计数器在进程生命周期内单调递增，从不重置、从不淘汰。
//
// # 调用点注册表
//
// Registry 把 "文件:行号" 形式的调用点映射到计数器，键用 xxhash 计算。
// 同一调用点在进程内总是命中同一个计数器。
//
// # every-N 的精确性
//
// every-N 的判定是 (旧值 % n) == 0，旧值为递增前的计数，因此第 1、
// n+1、2n+1…… 次调用发射。n 为 2 的幂时，即使计数器自然溢出回绕，
// 取模周期也保持精确；n 不是 2 的幂时，多 goroutine 并发递增可能在
// 边界处偶尔多发或漏发一条。计数路径不加锁，这一不精确是接口约定
// 的一部分。
//
// # 策略接口
//
// 在计数器之上，包保留了策略模式的采样器族：Always/Never、
// RateSampler（随机比率）、CountSampler（every-N）、FirstNSampler
// （first-N）以及 AND/OR 组合器，便于把采样决策作为值传递和组合。
//
// # 并发安全
//
// 所有类型都是并发安全的，计数路径无锁。
package xsampling
