package xalog

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/omeyang/xalog/pkg/xsampling"
)

// stderrEveryN 标准错误兜底输出的限频步长。坏盘等持续故障每秒
// 可产生上千个相同错误，全量打印会反过来拖垮宿主进程。
const stderrEveryN = 64

// stderrWriter 兜底输出目标，测试可替换。
var stderrWriter io.Writer = os.Stderr

// errorReporter 异步错误的终点。注册了用户回调时交给回调，
// 否则限频写入标准错误。生产者永远看不到这些错误。
type errorReporter struct {
	user    func(error)
	limiter xsampling.Counter
	total   atomic.Uint64
}

func newErrorReporter(user func(error)) *errorReporter {
	return &errorReporter{user: user}
}

func (r *errorReporter) report(err error) {
	if err == nil {
		return
	}
	r.total.Add(1)
	if r.user != nil {
		r.invokeUser(err)
		return
	}
	if r.limiter.EveryN(stderrEveryN) {
		fmt.Fprintf(stderrWriter, "xalog: %v (total async errors: %d)\n", err, r.total.Load())
	}
}

// invokeUser 隔离用户回调的 panic，故障的回调不能中断刷写循环。
func (r *errorReporter) invokeUser(err error) {
	defer func() {
		_ = recover()
	}()
	r.user(err)
}

// Total 返回累计异步错误数。
func (r *errorReporter) Total() uint64 {
	return r.total.Load()
}
