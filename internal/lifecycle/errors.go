package lifecycle

import (
	"errors"
	"fmt"
	"os"
)

// ErrSignal 表示因收到系统信号而终止。
// 使用 errors.Is(err, ErrSignal) 判断，errors.As 取具体信号。
var ErrSignal = errors.New("received signal")

var (
	// ErrNilFunc 服务函数为 nil。
	ErrNilFunc = errors.New("lifecycle: nil service func")

	// ErrNilHandler 信号处理函数为 nil。
	ErrNilHandler = errors.New("lifecycle: nil signal handler")

	// ErrNoSignals 信号列表为空。signal.Notify 对空列表会订阅
	// 全部信号，这几乎不会是调用方想要的行为。
	ErrNoSignals = errors.New("lifecycle: empty signal list")

	// ErrInvalidInterval Ticker 的间隔必须为正数。
	ErrInvalidInterval = errors.New("lifecycle: interval must be positive")
)

// SignalError 携带触发终止的具体信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

// Is 支持 errors.Is(err, ErrSignal)。
func (e *SignalError) Is(target error) bool {
	return target == ErrSignal
}

func (e *SignalError) Unwrap() error {
	return ErrSignal
}
