// Package xalog 提供面向高吞吐服务的异步结构化日志引擎。
//
// # 概述
//
// xalog 把日志的写出从调用方路径上剥离：调用方只做级别判断、
// 记录装配和一次缓冲追加，落盘、轮转、回调全部由后台调度完成。
// 引擎提供：
//   - 双缓冲交换，写满即换，单调度方负责刷写
//   - 固定上限的内存占用，溢出时按记录边界丢弃最旧一半并留痕
//   - 按大小轮转的本地文件、按条或按块的远程回调、标准输出三路写出
//   - 调用点采样（每 N 条一条、只记前 N 条）
//   - 独立的致命路径: 限时排空、全量回溯、专用 .fatal 文件
//
// # 记录格式
//
// 每条记录单行，格式固定:
//
//	<级别字符><月日> <时:分:秒.毫秒> <线程号> <文件>:<行>] <正文>
//
// 时间戳在记录被刷写方取走的瞬间统一补写，因此文件内的字节序
// 即时间序，崩溃后可按前缀二分定位。
//
// # 快速开始
//
// 包级默认引擎:
//
//	if err := xalog.Init(xalog.DefaultConfig()); err != nil {
//	    panic(err)
//	}
//	defer xalog.Shutdown(context.Background())
//
//	xalog.Info("service started")
//	xalog.Warnf("cache miss ratio %.2f", ratio)
//	xalog.LogEveryN(xalog.LevelWarn, 100, "slow query")
//
// 独立引擎:
//
//	cfg := xalog.DefaultConfig()
//	cfg.LogDir = "/var/log/myapp"
//	cfg.LogFileName = "myapp"
//	eng, err := xalog.New(cfg, xalog.WithOnError(report))
//	if err != nil {
//	    return err
//	}
//	if err := eng.Start(); err != nil {
//	    return err
//	}
//	defer eng.Stop(context.Background())
//
// # 写出矩阵
//
// 注册回调后默认不再落本地文件，除非 also_log_to_local 为真；
// cout 在任何组合下都会把记录同时送到标准输出。致命路径的
// .fatal 文件独立于这张矩阵，回调模式下依然会在触发时创建。
//
// # 信号
//
// 设计决策: 引擎默认接管两组信号。SIGINT、SIGTERM、SIGHUP 触发
// 完整停机并刷写，随后恢复默认处置重投，进程仍按默认语义退出；
// SIGQUIT、SIGABRT 走致命路径，带全 goroutine 回溯。宿主进程若
// 自行管理信号，用 WithoutSignalHandler 关闭接管。
package xalog
