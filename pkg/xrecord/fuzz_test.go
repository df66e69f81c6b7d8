package xrecord

import (
	"strings"
	"testing"
)

// =============================================================================
// 模糊测试（Fuzz）
//
// 运行方式：go test -fuzz=FuzzBuild -fuzztime=30s
// =============================================================================

// FuzzBuild 模糊测试记录装配
//
// 测试目标：
//   - 任意消息输入不会导致 panic
//   - 输出长度永不超过单条上限
//   - 输出恰好以一个换行结尾
func FuzzBuild(f *testing.F) {
	f.Add("hello")
	f.Add("")
	f.Add("\n")
	f.Add("multi\nline\nmessage")
	f.Add("trailing\n\n\n")
	f.Add(strings.Repeat("x", 10000))
	f.Add("消息内容")
	f.Add("\x00\x01binary")

	const limit = 256
	a, err := NewAssembler(limit)
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, msg string) {
		rec := a.Build(LevelInfo, "f.go:1", msg)
		defer a.Release(rec)

		out := rec.Bytes()
		if len(out) > limit {
			t.Fatalf("record length %d exceeds limit %d", len(out), limit)
		}
		if len(out) == 0 || out[len(out)-1] != '\n' {
			t.Fatalf("record %q does not end with newline", out)
		}
		// 消息不含换行时，结尾换行必须恰好一个
		if !strings.Contains(msg, "\n") && len(out) >= 2 && out[len(out)-2] == '\n' {
			t.Fatalf("record %q has duplicated trailing newline", out)
		}
	})
}
