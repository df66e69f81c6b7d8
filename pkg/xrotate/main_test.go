package xrotate

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain 在所有测试完成后检测 goroutine 泄漏。
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// lumberjack 的 millRun goroutine 通过 sync.Once 启动，Close()
		// 不关闭对应的 channel，goroutine 在 Logger 生命周期结束后仍驻留。
		// 上游已知限制，这里按其建议忽略。
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}
