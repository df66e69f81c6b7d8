package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"time"
)

// 测试通过 context 注入信号通道，避免向自身进程发送真实信号。
// 查找逻辑必须在生产代码中，因为 Signals 返回的服务函数会调用它。

type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, ok := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	if !ok {
		return nil
	}
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// Signals 返回监听系统信号的服务函数。
//
// 收到 signals 中的信号时调用 handle。handle 返回 nil 时继续
// 监听后续信号，返回非 nil 时服务以该错误退出，经由 Group 取消
// 其余服务。ctx 取消时返回 ctx.Err()。
//
// 一个 Group 可注册多个 Signals 服务，各自监听不同的信号集合，
// 例如优雅关闭信号与致命信号分开处理。
func Signals(signals []os.Signal, handle func(os.Signal) error) func(ctx context.Context) error {
	// 创建时拷贝，调用方后续修改切片不影响已注册的服务。
	copied := append([]os.Signal(nil), signals...)
	return func(ctx context.Context) error {
		if len(copied) == 0 {
			return ErrNoSignals
		}
		if handle == nil {
			return ErrNilHandler
		}

		testc := testSigChan(ctx)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, copied...)
		defer signal.Stop(sigCh)

		for {
			var sig os.Signal
			select {
			case sig = <-testc:
			case sig = <-sigCh:
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := handle(sig); err != nil {
				return err
			}
		}
	}
}

// Ticker 返回周期执行任务的服务函数。
//
// interval 必须为正数。immediate 为 true 时启动即执行一次。
// fn 返回错误或 ctx 取消时服务退出。
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}

		if immediate {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
