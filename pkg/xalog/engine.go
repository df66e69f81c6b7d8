package xalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xalog/internal/lifecycle"
	"github.com/omeyang/xalog/pkg/xbuffer"
	"github.com/omeyang/xalog/pkg/xfatal"
	"github.com/omeyang/xalog/pkg/xfile"
	"github.com/omeyang/xalog/pkg/xrecord"
	"github.com/omeyang/xalog/pkg/xrotate"
	"github.com/omeyang/xalog/pkg/xsampling"
	"github.com/omeyang/xalog/pkg/xsched"
	"github.com/omeyang/xalog/pkg/xsink"

	"github.com/google/uuid"
)

// 引擎状态。
const (
	stateNew int32 = iota
	stateRunning
	stateStopped
)

// defaultStopTimeout 信号触发的关闭与包级 Shutdown 的等待上限。
const defaultStopTimeout = 5 * time.Second

// noticeCallsite 丢弃告警记录使用的合成调用点。
const noticeCallsite = "xalog:0"

// fatalFileMode 致命记录文件的权限。
const fatalFileMode = 0o640

// stdoutWriter 标准输出写出端，测试可替换。
var stdoutWriter io.Writer = os.Stdout

// fatalExit 致命路径的退出函数注入点，生产为 nil（即 os.Exit）。
var fatalExit func(int)

// Engine 异步日志引擎。
//
// 生产者在调用 goroutine 内完成级别闸门、记录装配与缓冲追加，
// 唯一的阻塞点是缓冲互斥锁；落盘、轮转与回调全部发生在后台
// 调度 goroutine。Start 之后配置不可变，最低级别除外。
type Engine struct {
	cfg  Config
	opts engineOptions

	asm      *xrecord.Assembler
	buf      *xbuffer.DualBuffer
	sched    *xsched.Scheduler
	sink     xsink.Sink
	fileSink *xsink.FileSink
	cbSink   *xsink.CallbackSink
	fatal    *xfatal.Handler
	sites    *xsampling.Registry
	reporter *errorReporter
	metrics  *engineMetrics
	msrc     *metricsSource
	cron     *cron.Cron

	instanceID string
	minLevel   atomic.Int32
	stats      *engineStats

	state    atomic.Int32
	group    *lifecycle.Group
	groupRes *groupResult

	stopOnce sync.Once
	stopDone chan struct{}
	stopErr  error
}

// groupResult 与等待 goroutine 之间的交接点。独立于 Engine，
// 等待 goroutine 不持有引擎引用。
type groupResult struct {
	done chan struct{}
	err  error
}

// enginePieces 清理函数持有的部件。不含 Engine 自身，否则引擎
// 永远可达，清理永远不会触发。
type enginePieces struct {
	group *lifecycle.Group
	res   *groupResult
	sched *xsched.Scheduler
	sink  xsink.Sink
}

func (p enginePieces) close() {
	if p.group != nil {
		p.group.Cancel(nil)
		<-p.res.done
	}
	_ = p.sched.Stop()
	_ = p.sink.Close()
}

// dropNoticer 构造缓冲溢出的合成告警记录。notice 只会在缓冲锁内
// 被单一路径调用，scratch 无并发访问。
type dropNoticer struct {
	asm     *xrecord.Assembler
	scratch []byte
}

func (d *dropNoticer) notice(dropped int) ([]byte, int) {
	rec := d.asm.Build(xrecord.LevelWarn, noticeCallsite, strconv.Itoa(dropped)+" bytes dropped")
	d.scratch = append(d.scratch[:0], rec.Bytes()...)
	d.asm.Release(rec)
	return d.scratch, xrecord.TimeOffset
}

// New 创建引擎。零值配置字段落到默认值，校验失败返回
// [ErrInvalidConfig] 包装的错误。创建不触碰磁盘，目录与文件
// 都在首次写入时才出现。
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o engineOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	if o.chunkCB != nil && o.recordCB != nil {
		return nil, ErrCallbackConflict
	}

	e := &Engine{
		cfg:        cfg,
		opts:       o,
		sites:      xsampling.NewRegistry(),
		stats:      &engineStats{},
		instanceID: uuid.NewString(),
		stopDone:   make(chan struct{}),
	}
	e.minLevel.Store(int32(cfg.MinLogLevel))

	asm, err := xrecord.NewAssembler(cfg.MaxLogSize)
	if err != nil {
		return nil, err
	}
	e.asm = asm
	e.reporter = newErrorReporter(o.onError)

	noticer := &dropNoticer{asm: asm}
	bufOpts := []xbuffer.Option{
		xbuffer.WithStamper(xrecord.Stamp),
		xbuffer.WithDropNotice(noticer.notice),
	}
	if o.highWater > 0 {
		bufOpts = append(bufOpts, xbuffer.WithHighWaterRatio(o.highWater))
	}
	e.buf, err = xbuffer.New(cfg.MaxLogBufferSize, bufOpts...)
	if err != nil {
		return nil, err
	}

	e.metrics, err = newEngineMetrics(o.meterProvider, e.instanceID)
	if err != nil {
		return nil, err
	}

	if err := e.assemble(); err != nil {
		return nil, err
	}
	return e, nil
}

// assemble 按当前配置与选项搭建写出端、调度器、致命路径与定时
// 轮转。New 与启动前的回调变更都经由这里，保证各部件引用一致。
func (e *Engine) assemble() error {
	cb, gran := e.opts.chunkCB, xsink.GranularityChunk
	if e.opts.recordCB != nil {
		cb, gran = e.opts.recordCB, xsink.GranularityRecord
	}

	var sinks []xsink.Sink
	e.fileSink = nil
	e.cbSink = nil

	var rotations interface{ Rotations() uint64 }
	if cb == nil || e.cfg.AlsoLogToLocal {
		rot, err := e.buildRotator()
		if err != nil {
			return err
		}
		if ir, ok := rot.(*xrotate.IndexRotator); ok {
			rotations = ir
		}
		fs, err := xsink.NewFile(rot)
		if err != nil {
			return err
		}
		e.fileSink = fs
		sinks = append(sinks, fs)
	}
	if cb != nil {
		cs, err := xsink.NewCallback(cb, xsink.WithGranularity(gran))
		if err != nil {
			return err
		}
		e.cbSink = cs
		sinks = append(sinks, cs)
	}
	if e.cfg.Cout {
		ws, err := xsink.NewWriter(stdoutWriter)
		if err != nil {
			return err
		}
		sinks = append(sinks, ws)
	}

	if len(sinks) == 1 {
		e.sink = sinks[0]
	} else {
		e.sink = xsink.NewMulti(sinks...)
	}

	var err error
	e.sched, err = xsched.New(e.buf, e.sink, e.cfg.FlushInterval(), xsched.WithOnError(e.reporter.report))
	if err != nil {
		return err
	}

	sink := e.sink
	emit := func(p []byte) {
		_ = sink.WriteChunk(xbuffer.NewChunk(p))
	}
	fatalOpts := []xfatal.Option{}
	if fatalExit != nil {
		fatalOpts = append(fatalOpts, xfatal.WithExitFunc(fatalExit))
	}
	e.fatal, err = xfatal.New(e.sched, emit, fatalFileOpener(e.cfg.FatalFilePath()), fatalOpts...)
	if err != nil {
		return err
	}

	e.cron = nil
	if e.opts.rotateSchedule != "" {
		if e.fileSink == nil {
			return fmt.Errorf("%w: rotate schedule requires a local file sink", ErrBadSchedule)
		}
		c := cron.New()
		rot := e.fileSink.Rotator()
		reporter := e.reporter
		if _, err := c.AddFunc(e.opts.rotateSchedule, func() {
			if err := rot.Rotate(); err != nil {
				reporter.report(err)
			}
		}); err != nil {
			return fmt.Errorf("%w: %w", ErrBadSchedule, err)
		}
		e.cron = c
	}

	e.msrc = &metricsSource{
		stats: e.stats,
		buf:   e.buf,
		sched: e.sched,
		rot:   rotations,
		cb:    e.cbSink,
	}
	return nil
}

func (e *Engine) buildRotator() (xrotate.Rotator, error) {
	if e.opts.archive {
		return xrotate.NewArchive(e.cfg.FilePath(), e.opts.archiveOpts...)
	}
	idxOpts := []xrotate.IndexOption{
		xrotate.WithMaxFileSize(e.cfg.MaxLogFileSize),
		xrotate.WithMaxFiles(e.cfg.MaxLogFileNum),
		xrotate.WithIndexOnError(e.reporter.report),
	}
	if e.opts.minDiskFree > 0 {
		idxOpts = append(idxOpts, xrotate.WithMinDiskFree(e.opts.minDiskFree))
	}
	return xrotate.NewIndex(e.cfg.FilePath(), idxOpts...)
}

func fatalFileOpener(path string) func() (io.WriteCloser, error) {
	return func() (io.WriteCloser, error) {
		if err := xfile.EnsureDir(path); err != nil {
			return nil, err
		}
		//#nosec G304 -- 路径由配置推导并经校验
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, fatalFileMode)
	}
}

// SetChunkWriteCallback 在 Start 之前注册按块写回调。
// 启动后调用返回 [ErrAlreadyStarted]。
func (e *Engine) SetChunkWriteCallback(fn xsink.CallbackFunc) error {
	if e.state.Load() != stateNew {
		return ErrAlreadyStarted
	}
	if e.opts.recordCB != nil {
		return ErrCallbackConflict
	}
	e.opts.chunkCB = fn
	return e.assemble()
}

// SetRecordWriteCallback 在 Start 之前注册按条写回调。
func (e *Engine) SetRecordWriteCallback(fn xsink.CallbackFunc) error {
	if e.state.Load() != stateNew {
		return ErrAlreadyStarted
	}
	if e.opts.chunkCB != nil {
		return ErrCallbackConflict
	}
	e.opts.recordCB = fn
	return e.assemble()
}

// Start 启动后台调度与生命周期服务。只能成功启动一次。
//
// 设计决策: 启动即注册清理函数，持有的是调度器与写出端而非引擎
// 本身。未显式 Stop 就失去全部引用的引擎会在回收时补一次停机
// 刷写，信号服务在禁用时不提供，因为其监听 goroutine 会让引擎
// 永远可达。
func (e *Engine) Start() error {
	if !e.state.CompareAndSwap(stateNew, stateRunning) {
		if e.state.Load() == stateStopped {
			return ErrStopped
		}
		return ErrAlreadyStarted
	}

	if err := e.sched.Start(context.Background()); err != nil {
		e.state.Store(stateStopped)
		return err
	}

	g, _ := lifecycle.NewGroup(context.Background(), lifecycle.WithName("xalog"))
	e.group = g

	if e.cron != nil {
		c := e.cron
		g.GoWithName("rotate-cron", func(ctx context.Context) error {
			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			return ctx.Err()
		})
	}
	g.GoWithName("metrics", lifecycle.Ticker(metricsPollInterval, false, metricsPoller(e.metrics, e.msrc)))
	if !e.opts.noSignals {
		g.GoWithName("signals-graceful", lifecycle.Signals(xfatal.GracefulSignals, e.onGracefulSignal))
		g.GoWithName("signals-fatal", lifecycle.Signals(xfatal.FatalSignals, e.onFatalSignal))
	}

	res := &groupResult{done: make(chan struct{})}
	e.groupRes = res
	go func(g *lifecycle.Group, res *groupResult) {
		res.err = g.Wait()
		close(res.done)
	}(g, res)

	runtime.AddCleanup(e, func(p enginePieces) { p.close() },
		enginePieces{group: g, res: res, sched: e.sched, sink: e.sink})
	return nil
}

// Stop 停止引擎: 取消生命周期服务、执行最后一次强制刷写并关闭
// 写出端。幂等，所有调用方观察到同一份结果。ctx 只约束本次调用
// 的等待时长，超时返回后停机仍会在后台完成。
func (e *Engine) Stop(ctx context.Context) error {
	if e.state.Load() == stateNew {
		return ErrNotStarted
	}
	e.stopOnce.Do(func() {
		go e.teardown()
	})
	select {
	case <-e.stopDone:
		return e.stopErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) teardown() {
	defer close(e.stopDone)
	e.state.Store(stateStopped)

	if e.group != nil {
		e.group.Cancel(nil)
		<-e.groupRes.done
	}

	var errs []error
	if err := e.sched.Stop(); err != nil && !errors.Is(err, xsched.ErrNotStarted) {
		errs = append(errs, err)
	}
	if err := e.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.groupRes != nil && e.groupRes.err != nil && !errors.Is(e.groupRes.err, lifecycle.ErrSignal) {
		errs = append(errs, e.groupRes.err)
	}
	e.stopErr = errors.Join(errs...)
}

// onGracefulSignal 收到终止类信号: 异步走完整停机，随后恢复默认
// 处置并重投，让进程按默认语义退出。
//
// 设计决策: 重投保持「收到 SIGTERM 进程终止」的默认契约。只拦截
// 不重投会让没有自装信号处理的宿主进程变成杀不死的状态。自行
// 管理信号的进程应使用 WithoutSignalHandler。
func (e *Engine) onGracefulSignal(sig os.Signal) error {
	go e.shutdownAndReraise(sig)
	return &lifecycle.SignalError{Signal: sig}
}

func (e *Engine) shutdownAndReraise(sig os.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer cancel()
	_ = e.Stop(ctx)

	if s, ok := sig.(syscall.Signal); ok {
		signal.Reset(sig)
		_ = syscall.Kill(os.Getpid(), s)
	}
}

// onFatalSignal 收到异常类信号: 携带全 goroutine 回溯走致命路径。
func (e *Engine) onFatalSignal(sig os.Signal) error {
	e.emitFatal(signalCallsite(sig), "received signal "+sig.String(), true)
	// 生产环境不可达; 测试注入退出函数后会走到这里
	return &lifecycle.SignalError{Signal: sig}
}

func signalCallsite(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		return "signal:" + strconv.Itoa(int(s))
	}
	return "signal:0"
}

// Flush 同步刷写缓冲中的记录，等待受 ctx 约束。
func (e *Engine) Flush(ctx context.Context) error {
	return e.sched.Drain(ctx)
}

// MinLevel 返回当前最低记录级别。
func (e *Engine) MinLevel() xrecord.Level {
	return xrecord.Level(e.minLevel.Load())
}

// SetMinLevel 动态调整最低记录级别，运行期即时生效。
// 这是启动后唯一可变的配置量。
func (e *Engine) SetMinLevel(l xrecord.Level) error {
	if !l.Valid() {
		return fmt.Errorf("%w: %d", xrecord.ErrInvalidLevel, int(l))
	}
	e.minLevel.Store(int32(l))
	return nil
}

// InstanceID 返回引擎实例标识，用于指标属性与状态输出。
func (e *Engine) InstanceID() string {
	return e.instanceID
}

// Stats 引擎运行状态快照。
type Stats struct {
	InstanceID         string
	State              string
	MinLevel           xrecord.Level
	Appends            uint64
	Fatals             uint64
	BufferedBytes      int
	DropEvents         uint64
	DroppedBytes       uint64
	Overruns           uint64
	Flushes            uint64
	Rotations          uint64
	CallbackPanics     uint64
	CallbackSuppressed uint64
	AsyncErrors        uint64
}

// Stats 返回当前运行状态快照。
func (e *Engine) Stats() Stats {
	snap := e.msrc.collect()
	return Stats{
		InstanceID:         e.instanceID,
		State:              stateName(e.state.Load()),
		MinLevel:           e.MinLevel(),
		Appends:            snap.appends,
		Fatals:             snap.fatals,
		BufferedBytes:      snap.buffered,
		DropEvents:         snap.dropEvents,
		DroppedBytes:       snap.droppedBytes,
		Overruns:           snap.overruns,
		Flushes:            snap.flushes,
		Rotations:          snap.rotations,
		CallbackPanics:     snap.cbPanics,
		CallbackSuppressed: snap.cbSuppressed,
		AsyncErrors:        e.reporter.Total(),
	}
}

func stateName(s int32) string {
	switch s {
	case stateNew:
		return "new"
	case stateRunning:
		return "running"
	default:
		return "stopped"
	}
}
