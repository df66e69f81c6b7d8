package xalog

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xalog/pkg/xrotate"
	"github.com/omeyang/xalog/pkg/xsink"
)

// Option 配置引擎的选项函数。
type Option func(*engineOptions)

type engineOptions struct {
	chunkCB        xsink.CallbackFunc
	recordCB       xsink.CallbackFunc
	rotateSchedule string
	archive        bool
	archiveOpts    []xrotate.ArchiveOption
	meterProvider  metric.MeterProvider
	minDiskFree    uint64
	highWater      float64
	onError        func(error)
	noSignals      bool
}

// WithChunkWriteCallback 注册按块写回调。每次刷写把整块字节交给
// fn，切片仅在调用期间有效。与 [WithRecordWriteCallback] 互斥。
//
// 注册回调后默认不再创建本地文件，除非 also_log_to_local 为 true。
func WithChunkWriteCallback(fn xsink.CallbackFunc) Option {
	return func(o *engineOptions) { o.chunkCB = fn }
}

// WithRecordWriteCallback 注册按条写回调。每条记录单独回调一次。
// 与 [WithChunkWriteCallback] 互斥。
func WithRecordWriteCallback(fn xsink.CallbackFunc) Option {
	return func(o *engineOptions) { o.recordCB = fn }
}

// WithRotateSchedule 追加基于 cron 表达式的定时强制轮转，
// 与大小触发的轮转并存。标准五段式表达式，如每日零点 "0 0 * * *"。
// 需要本地文件写出端，否则 [New] 返回 [ErrBadSchedule]。
func WithRotateSchedule(spec string) Option {
	return func(o *engineOptions) { o.rotateSchedule = spec }
}

// WithArchiveRotation 用归档轮转器（时间戳备份、压缩、按龄清理）
// 替代默认的序号轮转器。
func WithArchiveRotation(opts ...xrotate.ArchiveOption) Option {
	return func(o *engineOptions) {
		o.archive = true
		o.archiveOpts = opts
	}
}

// WithMeterProvider 设置自监控指标的 MeterProvider。
// 默认使用 otel 全局 provider，未安装时为空操作。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *engineOptions) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithMinDiskFree 设置磁盘剩余空间下限。低于下限时序号轮转器
// 跳过写入并经错误回调上报，空间恢复后自动继续。
func WithMinDiskFree(bytes uint64) Option {
	return func(o *engineOptions) { o.minDiskFree = bytes }
}

// WithHighWaterRatio 设置提前刷写的高水位比例，(0,1]。
func WithHighWaterRatio(r float64) Option {
	return func(o *engineOptions) { o.highWater = r }
}

// WithOnError 注册异步写出错误的回调。未注册时错误限频后落到
// 标准错误输出。回调在调度 goroutine 内执行，panic 会被吸收。
func WithOnError(fn func(error)) Option {
	return func(o *engineOptions) { o.onError = fn }
}

// WithoutSignalHandler 禁用内置的信号处理。
// 适用于宿主进程自行管理信号并显式调用 Stop 的场景。
func WithoutSignalHandler() Option {
	return func(o *engineOptions) { o.noSignals = true }
}
