// Package xsink 定义刷写调度器下游的写出端。
//
// 四种实现，共用 [Sink] 接口:
//
//   - [FileSink]: 写入 xrotate 轮转器，默认出口。
//   - [WriterSink]: 写入任意 io.Writer，用于标准输出联署。
//   - [CallbackSink]: 整块或逐条交给用户回调，内置熔断器（连续失败
//     后暂时跳过回调）与 panic 隔离。
//   - [MultiSink]: 扇出到多个写出端，单个失败不影响其余。
//
// 引擎按配置把它们组合成输出矩阵: 仅文件、仅回调、回调加本地文件、
// 以及任意组合之上的标准输出联署。
package xsink
