//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/omeyang/xalog/pkg/xalog"
	"github.com/omeyang/xalog/pkg/xconf"
)

var seqPattern = regexp.MustCompile(`seq=(\d{4})`)

// extractSeqs 按出现顺序取出记录里的序号。
func extractSeqs(t *testing.T, data []byte) []int {
	t.Helper()
	var seqs []int
	for _, m := range seqPattern.FindAllSubmatch(data, -1) {
		n, err := strconv.Atoi(string(m[1]))
		if err != nil {
			t.Fatalf("bad seq %q: %v", m[1], err)
		}
		seqs = append(seqs, n)
	}
	return seqs
}

// TestRotationChainRetention_E2E 验证轮转命名、保有数量与跨文件的记录顺序。
func TestRotationChainRetention_E2E(t *testing.T) {
	dir := t.TempDir()
	cfg := xalog.Config{
		LogDir:         dir,
		LogFileName:    "rot",
		MaxLogFileSize: 8 * 1024,
		MaxLogFileNum:  2,
		LogFlushMs:     200,
	}
	e, err := xalog.New(cfg, xalog.WithoutSignalHandler())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	payload := strings.Repeat("p", 150)
	for i := 0; i < 40; i++ {
		for j := 0; j < 10; j++ {
			e.Infof("seq=%04d %s", i*10+j, payload)
		}
		if err := e.Flush(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	// 稳定状态: 当前文件加 MaxLogFileNum 个轮转文件，更老的已被删除
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	want := []string{"rot.log", "rot_1.log", "rot_2.log"}
	if len(names) != len(want) {
		t.Fatalf("files = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("files = %v, want %v", names, want)
		}
	}

	// 轮转在写入前判定，单个文件不会越过上限
	for _, name := range want {
		st, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if st.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
		if st.Size() > cfg.MaxLogFileSize {
			t.Errorf("%s size %d exceeds limit %d", name, st.Size(), cfg.MaxLogFileSize)
		}
	}

	// 序号越大的文件越老，倒序拼接即完整时间序
	var all []byte
	for _, name := range []string{"rot_2.log", "rot_1.log", "rot.log"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, data...)
	}
	seqs := extractSeqs(t, all)
	if len(seqs) == 0 {
		t.Fatal("no records survived")
	}
	if last := seqs[len(seqs)-1]; last != 399 {
		t.Errorf("last seq = %d, want 399", last)
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] != seqs[i-1]+1 {
			t.Fatalf("sequence gap at %d: %d -> %d", i, seqs[i-1], seqs[i])
		}
	}

	if st := e.Stats(); st.Rotations < 3 {
		t.Errorf("rotations = %d, want >= 3", st.Rotations)
	}
}

// TestBufferOverflowDropsOldest_E2E 验证缓冲写满时丢老保新并留下丢弃告知。
func TestBufferOverflowDropsOldest_E2E(t *testing.T) {
	dir := t.TempDir()
	cfg := xalog.Config{
		LogDir:           dir,
		LogFileName:      "burst",
		MaxLogSize:       512,
		MaxLogBufferSize: 4 * 1024,
		LogFlushMs:       50,
	}
	e, err := xalog.New(cfg, xalog.WithoutSignalHandler())
	if err != nil {
		t.Fatal(err)
	}

	// 启动前写入只进缓冲，溢出行为不受刷写节拍影响
	payload := strings.Repeat("q", 120)
	for i := 0; i < 60; i++ {
		e.Infof("seq=%04d %s", i, payload)
	}
	st := e.Stats()
	if st.DropEvents == 0 {
		t.Fatalf("no drop events, stats %+v", st)
	}
	if st.DroppedBytes == 0 {
		t.Fatalf("no dropped bytes, stats %+v", st)
	}

	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := e.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "burst.log"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "bytes dropped") {
		t.Error("drop notice missing from output")
	}
	if !strings.Contains(content, "seq=0059 ") {
		t.Error("newest record missing")
	}
	if strings.Contains(content, "seq=0000 ") {
		t.Error("oldest record should have been dropped")
	}

	// 丢弃只砍最老的前缀，幸存序号保持连续
	seqs := extractSeqs(t, data)
	if len(seqs) == 0 {
		t.Fatal("no records survived")
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] != seqs[i-1]+1 {
			t.Fatalf("sequence gap at %d: %d -> %d", i, seqs[i-1], seqs[i])
		}
	}
}

// TestCallbackTeeMatchesLocalFile_E2E 验证回调与本地文件收到完全相同的记录流。
func TestCallbackTeeMatchesLocalFile_E2E(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var got []string
	cb := func(p []byte) error {
		mu.Lock()
		got = append(got, string(p))
		mu.Unlock()
		return nil
	}

	cfg := xalog.Config{
		LogDir:         dir,
		LogFileName:    "tee",
		AlsoLogToLocal: true,
		LogFlushMs:     20,
	}
	e, err := xalog.New(cfg, xalog.WithRecordWriteCallback(cb), xalog.WithoutSignalHandler())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	msgs := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for _, m := range msgs {
		e.Info(m)
	}
	ctx := context.Background()
	if err := e.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "tee.log"))
	if err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(msgs) {
		t.Fatalf("callback records = %d, want %d", len(got), len(msgs))
	}
	if strings.Join(got, "") != string(data) {
		t.Errorf("callback stream and local file diverge:\ncallback: %q\nfile: %q",
			strings.Join(got, ""), data)
	}
	for i, rec := range got {
		if rec[0] != 'I' {
			t.Errorf("record %d level = %c, want I", i, rec[0])
		}
		if !strings.HasSuffix(rec, "] "+msgs[i]+"\n") {
			t.Errorf("record %d = %q, want message %q", i, rec, msgs[i])
		}
	}
}

// TestGlobalConfigChain_E2E 验证从配置字节到包级函数的完整链路。
func TestGlobalConfigChain_E2E(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf("log_dir: %s\nlog_file_name: svc\nmin_log_level: 1\nlog_flush_ms: 20\n", dir)
	if err := xalog.InitFromBytes([]byte(yaml), xconf.FormatYAML); err != nil {
		t.Fatal(err)
	}

	xalog.Debug("invisible")
	xalog.Info("service ready")
	xalog.Warnf("queue depth %d", 17)
	xalog.Errorf("sync failed: %v", errors.New("timeout"))

	ctx := context.Background()
	if err := xalog.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "svc.log"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"] service ready\n", "] queue depth 17\n", "] sync failed: timeout\n"} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "invisible") {
		t.Error("debug record should be filtered by min_log_level")
	}
	if !regexp.MustCompile(`(?m)^W\d{4} `).MatchString(content) {
		t.Error("missing W-level record")
	}

	if err := xalog.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}

	// 关闭后的写入静默丢弃
	xalog.Info("after shutdown")
	after, err := os.ReadFile(filepath.Join(dir, "svc.log"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(after), "after shutdown") {
		t.Error("write after shutdown should be dropped")
	}
}

// TestFatalExitsProcess_E2E 在子进程里触发 Fatal，验证退出码、
// 常规日志里的致命记录与 .fatal 文件里的回溯。
func TestFatalExitsProcess_E2E(t *testing.T) {
	dir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperFatalProcess$", "-test.v")
	cmd.Env = append(os.Environ(), "XALOG_E2E_FATAL_DIR="+dir)
	out, err := cmd.CombinedOutput()

	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("expected exit error, got %v\noutput: %s", err, out)
	}
	if code := ee.ExitCode(); code != 2 {
		t.Fatalf("exit code = %d, want 2\noutput: %s", code, out)
	}

	logData, err := os.ReadFile(filepath.Join(dir, "crash.log"))
	if err != nil {
		t.Fatalf("crash.log: %v", err)
	}
	content := string(logData)
	if !strings.Contains(content, "] about to crash\n") {
		t.Errorf("buffered record missing, fatal drain did not flush:\n%s", content)
	}
	if !regexp.MustCompile(`(?m)^F\d{4} .*\] boom`).MatchString(content) {
		t.Errorf("fatal record missing from regular log:\n%s", content)
	}
	if strings.Index(content, "about to crash") > strings.Index(content, "boom") {
		t.Errorf("fatal record precedes earlier records:\n%s", content)
	}

	fatalData, err := os.ReadFile(filepath.Join(dir, "crash.fatal"))
	if err != nil {
		t.Fatalf("crash.fatal: %v", err)
	}
	fc := string(fatalData)
	if !strings.Contains(fc, "boom") {
		t.Errorf("fatal file missing message:\n%s", fc)
	}
	if !strings.Contains(fc, "goroutine ") {
		t.Errorf("fatal file missing stack trace:\n%s", fc)
	}
}

// TestHelperFatalProcess 是 TestFatalExitsProcess_E2E 的子进程体。
func TestHelperFatalProcess(t *testing.T) {
	dir := os.Getenv("XALOG_E2E_FATAL_DIR")
	if dir == "" {
		t.Skip("仅作为子进程运行")
	}
	cfg := xalog.Config{
		LogDir:      dir,
		LogFileName: "crash",
		LogFlushMs:  3600000,
	}
	if err := xalog.Init(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(97)
	}
	xalog.Info("about to crash")
	xalog.Fatal("boom")
	os.Exit(98) // Fatal 不返回
}

// TestGracefulSignalFlushes_E2E 在子进程里自发 SIGTERM，验证优雅
// 停机把缓冲全部落盘后按原信号终止进程。
func TestGracefulSignalFlushes_E2E(t *testing.T) {
	dir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperGracefulProcess$", "-test.v")
	cmd.Env = append(os.Environ(), "XALOG_E2E_GRACEFUL_DIR="+dir)
	out, err := cmd.CombinedOutput()

	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("expected signal death, got %v\noutput: %s", err, out)
	}
	ws, ok := ee.Sys().(syscall.WaitStatus)
	if !ok {
		t.Fatalf("no wait status: %v", ee)
	}
	if !ws.Signaled() || ws.Signal() != syscall.SIGTERM {
		t.Fatalf("expected SIGTERM death, got signaled=%v signal=%v exit=%d\noutput: %s",
			ws.Signaled(), ws.Signal(), ws.ExitStatus(), out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "svc.log"))
	if err != nil {
		t.Fatalf("svc.log: %v", err)
	}
	content := string(data)
	for i := 0; i < 50; i++ {
		if !strings.Contains(content, fmt.Sprintf("record %04d", i)) {
			t.Fatalf("record %04d missing after graceful shutdown:\n%s", i, content)
		}
	}
}

// TestHelperGracefulProcess 是 TestGracefulSignalFlushes_E2E 的子进程体。
func TestHelperGracefulProcess(t *testing.T) {
	dir := os.Getenv("XALOG_E2E_GRACEFUL_DIR")
	if dir == "" {
		t.Skip("仅作为子进程运行")
	}
	// 刷写间隔拉到一小时，落盘只能来自信号触发的停机
	cfg := xalog.Config{
		LogDir:      dir,
		LogFileName: "svc",
		LogFlushMs:  3600000,
	}
	if err := xalog.Init(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(97)
	}
	for i := 0; i < 50; i++ {
		xalog.Infof("record %04d", i)
	}
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		os.Exit(96)
	}
	time.Sleep(10 * time.Second)
	os.Exit(98) // 信号处理应当在此之前终止进程
}
