package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xalog/pkg/xalog"
	"github.com/omeyang/xalog/pkg/xconf"
)

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) *usageError {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 识别 urfave/cli 解析阶段产生的参数类错误。
func isCLIUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "flag provided but not defined") ||
		strings.Contains(msg, "No help topic for") ||
		strings.Contains(msg, "unknown command")
}

// setupSignalHandler 设置信号处理。
// 设计决策: 第一次信号优雅取消，第二次信号强制退出（退出码 130 = 128 + SIGINT）。
// tail -F 等阻塞命令可通过再次 Ctrl+C 强制退出。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}

// =============================================================================
// status
// =============================================================================

func createStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Aliases:   []string{"s"},
		Usage:     "查看日志目录状态",
		ArgsUsage: "<目录>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "只统计该基础名（不含 .log 后缀）的文件",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return usageErrorf("缺少日志目录参数")
			}
			return cmdStatus(dir, cmd.String("file"), os.Stdout)
		},
	}
}

// logFileKind 目录内文件的角色。
type logFileKind int

const (
	kindCurrent logFileKind = iota
	kindRotated
	kindFatal
)

func (k logFileKind) String() string {
	switch k {
	case kindCurrent:
		return "current"
	case kindRotated:
		return "rotated"
	default:
		return "fatal"
	}
}

type logFileEntry struct {
	name  string
	size  int64
	mtime time.Time
	kind  logFileKind
	index int
}

func cmdStatus(dir, base string, w io.Writer) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("读取目录: %w", err)
	}

	var files []logFileEntry
	var total int64
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		fe, ok := classifyLogFile(ent.Name(), base)
		if !ok {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		fe.size = info.Size()
		fe.mtime = info.ModTime()
		total += fe.size
		files = append(files, fe)
	}

	if len(files) == 0 {
		fmt.Fprintln(w, "没有匹配的日志文件")
		return nil
	}

	// current 在前，轮转序列按序号升序，fatal 最后
	sort.Slice(files, func(i, j int) bool {
		if files[i].kind != files[j].kind {
			return files[i].kind < files[j].kind
		}
		if files[i].index != files[j].index {
			return files[i].index < files[j].index
		}
		return files[i].name < files[j].name
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "文件\t大小\t修改时间\t角色")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			f.name, humanBytes(f.size), f.mtime.Format("2006-01-02 15:04:05"), f.kind)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n共 %d 个文件，合计 %s\n", len(files), humanBytes(total))
	return nil
}

// classifyLogFile 判定文件角色并校验基础名过滤。
// 命名约定: current 为 name.log，轮转序列为 name_1.log、name_2.log，
// 崩溃记录为 name.fatal。
func classifyLogFile(name, base string) (logFileEntry, bool) {
	switch {
	case strings.HasSuffix(name, ".fatal"):
		stem := strings.TrimSuffix(name, ".fatal")
		if base != "" && stem != base {
			return logFileEntry{}, false
		}
		return logFileEntry{name: name, kind: kindFatal}, true

	case strings.HasSuffix(name, ".log"):
		stem := strings.TrimSuffix(name, ".log")
		if rotBase, idx, ok := splitRotated(stem); ok {
			if base != "" && rotBase != base {
				return logFileEntry{}, false
			}
			return logFileEntry{name: name, kind: kindRotated, index: idx}, true
		}
		if base != "" && stem != base {
			return logFileEntry{}, false
		}
		return logFileEntry{name: name, kind: kindCurrent}, true
	}
	return logFileEntry{}, false
}

// splitRotated 解析 "name_N" 形式的轮转文件主干。
func splitRotated(stem string) (string, int, bool) {
	i := strings.LastIndexByte(stem, '_')
	if i <= 0 || i == len(stem)-1 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(stem[i+1:])
	if err != nil || idx < 1 {
		return "", 0, false
	}
	return stem[:i], idx, true
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// =============================================================================
// tail
// =============================================================================

func createTailCommand() *cli.Command {
	return &cli.Command{
		Name:      "tail",
		Aliases:   []string{"t"},
		Usage:     "输出日志文件尾部",
		ArgsUsage: "<文件>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "lines",
				Aliases: []string{"n"},
				Usage:   "初始输出的行数",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:    "follow",
				Aliases: []string{"f", "F"},
				Usage:   "持续跟踪新增内容，感知轮转",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return usageErrorf("缺少日志文件参数")
			}
			return cmdTail(ctx, path, cmd.Int("lines"), cmd.Bool("follow"), os.Stdout)
		},
	}
}

func cmdTail(ctx context.Context, path string, n int, follow bool, w io.Writer) error {
	tail, offset, err := lastLines(path, n)
	if err != nil {
		return err
	}
	if _, err := w.Write(tail); err != nil {
		return err
	}
	if !follow {
		return nil
	}
	return followFile(ctx, path, offset, w)
}

// tailWindow 初始输出只回看文件末尾这么多字节。
const tailWindow = 256 * 1024

// lastLines 读取文件末尾最多 n 行，返回这些行与文件末尾偏移。
func lastLines(path string, n int) ([]byte, int64, error) {
	f, err := os.Open(path) //#nosec G304 -- 路径由使用者给定
	if err != nil {
		return nil, 0, fmt.Errorf("打开日志文件: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	size := st.Size()
	if n <= 0 || size == 0 {
		return nil, size, nil
	}

	start := size - tailWindow
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return nil, 0, err
	}
	// 窗口截进来的第一行可能不完整，丢弃
	if start > 0 {
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			buf = buf[i+1:]
		}
	}
	return lastNLines(buf, n), size, nil
}

func lastNLines(buf []byte, n int) []byte {
	if len(buf) == 0 {
		return nil
	}
	end := len(buf)
	if buf[end-1] == '\n' {
		end--
	}
	seen := 0
	for i := end - 1; i >= 0; i-- {
		if buf[i] == '\n' {
			seen++
			if seen == n {
				return buf[i+1:]
			}
		}
	}
	return buf
}

// followFile 跟踪文件新增内容。监视所在目录而非文件本身，
// 轮转把当前文件改名后在同名路径重建，目录事件两种变化都能看到。
func followFile(ctx context.Context, path string, offset int64, w io.Writer) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监视: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("监视目录 %s: %w", dir, err)
	}
	target := filepath.Base(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				// 轮转后在原路径重建，从头开始
				offset = 0
				if err := pumpNew(path, &offset, w); err != nil {
					return err
				}
			case event.Has(fsnotify.Write):
				if err := pumpNew(path, &offset, w); err != nil {
					return err
				}
			case event.Has(fsnotify.Rename), event.Has(fsnotify.Remove):
				// 当前文件被移走，等待重建
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("文件监视: %w", err)
		}
	}
}

// pumpNew 把 offset 之后的新增内容写到 w 并推进 offset。
func pumpNew(path string, offset *int64, w io.Writer) error {
	f, err := os.Open(path) //#nosec G304 -- 路径由使用者给定
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	// 文件被截短说明已是新文件，从头读
	if st.Size() < *offset {
		*offset = 0
	}
	if _, err := f.Seek(*offset, io.SeekStart); err != nil {
		return err
	}
	n, err := io.Copy(w, f)
	*offset += n
	return err
}

// =============================================================================
// check
// =============================================================================

func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Aliases:   []string{"c"},
		Usage:     "校验引擎配置文件",
		ArgsUsage: "<配置文件>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "持续监视配置文件，变更时重新校验",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return usageErrorf("缺少配置文件参数")
			}
			return cmdCheck(ctx, path, cmd.Bool("watch"), os.Stdout)
		},
	}
}

func cmdCheck(ctx context.Context, path string, watch bool, w io.Writer) error {
	if !watch {
		cfg, err := xalog.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("配置校验失败: %w", err)
		}
		printEffectiveConfig(w, cfg)
		return nil
	}

	// 监视模式下校验失败只报告，不退出
	report := func() {
		cfg, err := xalog.LoadConfig(path)
		if err != nil {
			fmt.Fprintf(w, "配置无效: %v\n", err)
			return
		}
		printEffectiveConfig(w, cfg)
	}
	report()

	loader, err := xconf.New(path)
	if err != nil {
		return fmt.Errorf("打开配置: %w", err)
	}
	watcher, err := xconf.Watch(loader, func(_ xconf.Config, err error) {
		fmt.Fprintf(w, "\n[%s] 配置变更\n", time.Now().Format("15:04:05"))
		if err != nil {
			fmt.Fprintf(w, "重载失败: %v\n", err)
			return
		}
		report()
	})
	if err != nil {
		return fmt.Errorf("监视配置: %w", err)
	}
	defer watcher.Stop()

	<-ctx.Done()
	return ctx.Err()
}

func printEffectiveConfig(w io.Writer, cfg xalog.Config) {
	fmt.Fprintln(w, "配置有效，生效值:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "log_dir\t%s\n", cfg.LogDir)
	fmt.Fprintf(tw, "log_file_name\t%s\n", cfg.LogFileName)
	fmt.Fprintf(tw, "min_log_level\t%d\n", cfg.MinLogLevel)
	fmt.Fprintf(tw, "max_log_size\t%s\n", humanBytes(int64(cfg.MaxLogSize)))
	fmt.Fprintf(tw, "max_log_file_size\t%s\n", humanBytes(cfg.MaxLogFileSize))
	fmt.Fprintf(tw, "max_log_file_num\t%d\n", cfg.MaxLogFileNum)
	fmt.Fprintf(tw, "max_log_buffer_size\t%s\n", humanBytes(int64(cfg.MaxLogBufferSize)))
	fmt.Fprintf(tw, "log_flush_ms\t%d\n", cfg.LogFlushMs)
	fmt.Fprintf(tw, "cout\t%v\n", cfg.Cout)
	fmt.Fprintf(tw, "also_log_to_local\t%v\n", cfg.AlsoLogToLocal)
	_ = tw.Flush()
}

// =============================================================================
// prune
// =============================================================================

func createPruneCommand() *cli.Command {
	return &cli.Command{
		Name:      "prune",
		Aliases:   []string{"p"},
		Usage:     "清理多余的轮转文件",
		ArgsUsage: "<目录>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "keep",
				Aliases: []string{"k"},
				Usage:   "每个日志序列保留的轮转文件个数（必填）",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "只打印将要删除的文件，不实际删除",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return usageErrorf("缺少日志目录参数")
			}
			keep := cmd.Int("keep")
			if keep <= 0 {
				return usageErrorf("--keep 必须为正整数")
			}
			return cmdPrune(dir, keep, cmd.Bool("dry-run"), os.Stdout)
		},
	}
}

func cmdPrune(dir string, keep int, dryRun bool, w io.Writer) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("读取目录: %w", err)
	}

	victims := pruneVictims(entryNames(entries), keep)
	if len(victims) == 0 {
		fmt.Fprintln(w, "没有需要清理的轮转文件")
		return nil
	}

	removed := 0
	for _, name := range victims {
		full := filepath.Join(dir, name)
		if dryRun {
			fmt.Fprintf(w, "将删除 %s\n", full)
			continue
		}
		if err := os.Remove(full); err != nil {
			return fmt.Errorf("删除 %s: %w", full, err)
		}
		fmt.Fprintf(w, "已删除 %s\n", full)
		removed++
	}
	if dryRun {
		fmt.Fprintf(w, "共 %d 个文件待删除（dry-run）\n", len(victims))
	} else {
		fmt.Fprintf(w, "共删除 %d 个文件\n", removed)
	}
	return nil
}

func entryNames(entries []os.DirEntry) []string {
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if !ent.IsDir() {
			names = append(names, ent.Name())
		}
	}
	return names
}

// pruneVictims 找出每个日志序列中序号超过 keep 的轮转文件。
// 序号越大越旧，超出保留数的就是最旧的那批。
func pruneVictims(names []string, keep int) []string {
	var victims []string
	for _, name := range names {
		if !strings.HasSuffix(name, ".log") {
			continue
		}
		stem := strings.TrimSuffix(name, ".log")
		if _, idx, ok := splitRotated(stem); ok && idx > keep {
			victims = append(victims, name)
		}
	}
	sort.Strings(victims)
	return victims
}
