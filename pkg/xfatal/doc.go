// Package xfatal 实现致命错误的崩溃路径。
//
// 致命记录产生后进程必须退出，但退出前要尽力抢救现场: 有界排空
// 缓冲、把致命记录写到常规出口、抓取 goroutine 回溯写入独立的
// .fatal 文件，最后以固定退出码终止进程。
//
// 崩溃路径不申请内存: 记录与回溯缓冲在构造时预分配，崩溃发生在
// 内存耗尽场景时路径本身不可再失败。并发触发时恰好一个胜者执行
// 完整流程，其余触发方有界等待后直接退出，不会重复抢救也不会悬死。
package xfatal
