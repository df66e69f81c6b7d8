// Package lifecycle 管理引擎后台服务的并发运行与协调关闭。
//
// Group 基于 errgroup 与 context 取消原因构建: 任一服务出错或
// 被取消时，其余服务收到取消信号，显式的退出原因（如 SignalError）
// 经由 Wait 带出。Signals 与 Ticker 是两个预置的服务函数。
package lifecycle
