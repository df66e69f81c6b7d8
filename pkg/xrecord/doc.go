// Package xrecord 负责把一条日志装配成最终落盘的字节序列。
//
// 行格式（逐字节固定）：
//
//	<级别字符><MMDD> <HH:MM:SS.mmm> <线程ID> <文件>:<行号>] <消息>\n
//
// 级别字符 ∈ {D, I, W, E, F}，年份刻意省略。无论调用方的消息是否
// 以换行结尾，装配结果都恰好以一个换行结尾。
//
// # 时间戳延迟填充
//
// Build 返回的记录中时间戳区域只是占位符。缓冲层在 append 临界区内
// 调用 [Stamp] 回填真实时间，保证落盘顺序与时间戳顺序严格一致，
// 即使多个 goroutine 并发提交。占位区域的位置与宽度由 [TimeOffset]
// 和 [TimeWidth] 给出。
//
// # 截断
//
// 超过单条上限的记录被截断而不是拒绝，截断后仍以换行结尾，
// 总长度恰好等于上限。
//
// # 调用点解析
//
// Callsite 通过 runtime.Callers 获取 pc，再经 LRU 缓存解析为
// "文件:行号" 字符串，避免热路径上重复的符号化与格式化开销。
package xrecord
