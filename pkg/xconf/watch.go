package xconf

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 文件事件去抖窗口。编辑器保存通常触发一连串
// Write/Create 事件，窗口内只触发一次重载。
const DefaultDebounce = 100 * time.Millisecond

// WatchCallback 配置变更回调。重载成功时 err 为 nil，失败时
// cfg 保持旧数据不变。
type WatchCallback func(cfg Config, err error)

// WatchOption 监视器选项。
type WatchOption func(*Watcher)

// WithDebounce 设置去抖窗口，d 小于等于 0 时保持默认值。
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 监视配置文件变更并自动重载。
//
// 设计决策: 监视配置文件所在目录而非文件本身。编辑器的原子保存
// （写临时文件后 rename）会使文件级 watch 失效，目录级事件按文件
// 名过滤后不受影响。
type Watcher struct {
	cfg      Config
	callback WatchCallback
	debounce time.Duration

	fw     *fsnotify.Watcher
	cancel context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// Watch 创建并启动后台监视。cfg 必须由 [New] 从文件创建，
// 字节数据配置返回 [ErrNotReloadable]。
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	w, err := NewWatcher(cfg, callback, opts...)
	if err != nil {
		return nil, err
	}
	w.StartAsync()
	return w, nil
}

// NewWatcher 创建监视器但不启动。
func NewWatcher(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if cfg == nil || callback == nil {
		return nil, ErrNilCallback
	}
	if cfg.Path() == "" {
		return nil, ErrNotReloadable
	}
	w := &Watcher{
		cfg:      cfg,
		callback: callback,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(cfg.Path())
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w.fw = fw
	return w, nil
}

// Start 阻塞运行事件循环直到 Stop 或 ctx 取消。
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx, w.cancel = context.WithCancel(ctx)
		w.run(ctx)
	})
}

// StartAsync 在后台 goroutine 运行事件循环。
func (w *Watcher) StartAsync() {
	w.startOnce.Do(func() {
		var ctx context.Context
		ctx, w.cancel = context.WithCancel(context.Background())
		go w.run(ctx)
	})
}

// Stop 停止监视，幂等。未启动时也可调用。
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		_ = w.fw.Close()
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}

// Done 返回事件循环退出后关闭的通道。从未 Start 过的监视器
// 该通道永不关闭。
func (w *Watcher) Done() <-chan struct{} { return w.done }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	base := filepath.Base(w.cfg.Path())
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.scheduleReload()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.callback(w.cfg, err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		err := w.cfg.Reload()
		w.callback(w.cfg, err)
	})
}
