package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Group 管理一组后台服务。任一服务返回错误或 Group 被取消时，
// 所有服务的 ctx 都会收到取消信号。
//
// Go、GoWithName、Cancel 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// Option 配置 Group。
type Option func(*groupOptions)

type groupOptions struct {
	logger *slog.Logger
	name   string
}

// WithLogger 设置生命周期事件的日志记录器。
//
// 设计决策: 默认丢弃而非 slog.Default()。本模块自身就是日志库，
// 不能默认向宿主进程的全局 logger 输出自己的内部诊断。
func WithLogger(logger *slog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 Group 名称，用于日志中区分多个 Group。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// NewGroup 创建 Group 并返回派生 context。任一服务出错时该
// context 被取消。nil ctx 归一化为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := &groupOptions{
		logger: slog.New(slog.DiscardHandler),
		name:   "lifecycle",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)

	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 启动一个服务 goroutine。fn 应监听 ctx.Done() 响应取消。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，附带服务名日志。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		g.opts.logger.Debug("service starting",
			slog.String("group", g.opts.name),
			slog.String("service", name),
		)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn("service exited with error",
				slog.String("group", g.opts.name),
				slog.String("service", name),
				slog.Any("error", err),
			)
		} else {
			g.opts.logger.Debug("service stopped",
				slog.String("group", g.opts.name),
				slog.String("service", name),
			)
		}
		return err
	})
}

// Wait 等待所有服务结束，返回第一个非 nil 错误。
//
// context.Canceled 被过滤，但显式的取消原因（Cancel(cause) 或
// 信号服务设置的 SignalError）会被保留并返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()

	// 区分取消来源: causeCtx 被取消说明是 Group 层面的取消
	// （Cancel 或父 ctx），此时用显式 cause 替换 context.Canceled；
	// causeCtx 未被取消说明 Canceled 来自服务内部，原样返回。
	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() != nil {
			if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
				return cause
			}
			return nil
		}
		return err
	}

	// 所有服务返回 nil 时，Cancel(cause) 设置的原因也不能丢。
	if err == nil && g.causeCtx.Err() != nil {
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
	}

	return err
}

// Cancel 主动取消所有服务。cause 经由 Wait 返回，为 nil 时
// Wait 返回 nil。cause 不应包装 context.Canceled，否则会被过滤。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的派生 context。
func (g *Group) Context() context.Context {
	return g.ctx
}
