package xsched

// State 调度器状态。
type State int32

const (
	// StateIdle 未启动或已停止。
	StateIdle State = iota
	// StateWaiting 等待刷写触发。
	StateWaiting
	// StateSwapping 正在交换缓冲。
	StateSwapping
	// StateWriting 正在写出取走的块。
	StateWriting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateSwapping:
		return "swapping"
	case StateWriting:
		return "writing"
	default:
		return "unknown"
	}
}
