package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Watch 测试
// =============================================================================

func TestWatch_ReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  min_log_level: 1\n"), 0600))

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Client().Int("log.min_log_level"))

	var mu sync.Mutex
	var reloads int
	var lastErr error

	w, err := Watch(cfg, func(c Config, err error) {
		mu.Lock()
		defer mu.Unlock()
		reloads++
		lastErr = err
	})
	require.NoError(t, err)
	defer w.Stop()

	// 等待事件循环就绪
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  min_log_level: 4\n"), 0600))

	// 防抖窗口 100ms 加上余量
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	assert.GreaterOrEqual(t, reloads, 1)
	assert.NoError(t, lastErr)
	mu.Unlock()

	assert.Equal(t, 4, cfg.Client().Int("log.min_log_level"))
}

func TestWatch_AtomicRename(t *testing.T) {
	// 模拟编辑器的原子保存: 写临时文件后 rename 覆盖目标。
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  cout: false\n"), 0600))

	cfg, err := New(path)
	require.NoError(t, err)

	var mu sync.Mutex
	var reloads int

	w, err := Watch(cfg, func(c Config, err error) {
		mu.Lock()
		defer mu.Unlock()
		reloads++
	}, WithDebounce(30*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	tmp := filepath.Join(dir, "config.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("log:\n  cout: true\n"), 0600))
	require.NoError(t, os.Rename(tmp, path))

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	assert.GreaterOrEqual(t, reloads, 1)
	mu.Unlock()
	assert.True(t, cfg.Client().Bool("log.cout"))
}

func TestWatch_DebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  min_log_level: 0\n"), 0600))

	cfg, err := New(path)
	require.NoError(t, err)

	var mu sync.Mutex
	var reloads int

	w, err := Watch(cfg, func(c Config, err error) {
		mu.Lock()
		defer mu.Unlock()
		reloads++
	}, WithDebounce(80*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	// 快速连续写入，防抖应合并为少量回调
	for i := range 5 {
		content := []byte("log:\n  min_log_level: " + string(rune('0'+i)) + "\n")
		require.NoError(t, os.WriteFile(path, content, 0600))
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	count := reloads
	mu.Unlock()
	assert.GreaterOrEqual(t, count, 1)
	assert.Less(t, count, 5)
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  cout: false\n"), 0600))

	cfg, err := New(path)
	require.NoError(t, err)

	var mu sync.Mutex
	var reloads int

	w, err := Watch(cfg, func(c Config, err error) {
		mu.Lock()
		defer mu.Unlock()
		reloads++
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	// 同目录其他文件的事件不触发重载
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("x: 1\n"), 0600))

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	assert.Zero(t, reloads)
	mu.Unlock()
}

func TestWatch_FromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte("log:\n  cout: true\n"), FormatYAML)
	require.NoError(t, err)

	_, err = Watch(cfg, func(c Config, err error) {})
	assert.ErrorIs(t, err, ErrNotReloadable)
}

func TestWatch_NilArgs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  cout: true\n"), 0600))

	cfg, err := New(path)
	require.NoError(t, err)

	_, err = Watch(cfg, nil)
	assert.ErrorIs(t, err, ErrNilCallback)

	_, err = Watch(nil, func(c Config, err error) {})
	assert.ErrorIs(t, err, ErrNilCallback)
}

func TestWatcher_StopIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  cout: true\n"), 0600))

	cfg, err := New(path)
	require.NoError(t, err)

	w, err := Watch(cfg, func(c Config, err error) {})
	require.NoError(t, err)

	w.Stop()
	w.Stop()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("event loop did not exit after Stop")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  cout: true\n"), 0600))

	cfg, err := New(path)
	require.NoError(t, err)

	w, err := NewWatcher(cfg, func(c Config, err error) {})
	require.NoError(t, err)

	// 未启动也能安全 Stop
	w.Stop()
}
