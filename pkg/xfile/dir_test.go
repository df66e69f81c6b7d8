package xfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// EnsureDir 单元测试
// =============================================================================

func TestEnsureDir(t *testing.T) {
	t.Run("创建不存在的父目录", func(t *testing.T) {
		base := t.TempDir()
		file := filepath.Join(base, "a", "b", "app.log")
		if err := EnsureDir(file); err != nil {
			t.Fatalf("EnsureDir() error: %v", err)
		}
		info, err := os.Stat(filepath.Dir(file))
		if err != nil {
			t.Fatalf("stat created dir: %v", err)
		}
		if !info.IsDir() {
			t.Fatal("created path is not a directory")
		}
		if got := info.Mode().Perm(); got != DefaultDirPerm {
			t.Errorf("dir perm = %04o, want %04o", got, os.FileMode(DefaultDirPerm))
		}
	})

	t.Run("目录已存在时不报错", func(t *testing.T) {
		base := t.TempDir()
		file := filepath.Join(base, "app.log")
		if err := EnsureDir(file); err != nil {
			t.Fatalf("EnsureDir() on existing dir: %v", err)
		}
	})

	t.Run("纯文件名无需创建", func(t *testing.T) {
		if err := EnsureDir("app.log"); err != nil {
			t.Fatalf("EnsureDir() on bare filename: %v", err)
		}
	})

	t.Run("空文件名", func(t *testing.T) {
		if err := EnsureDir(""); !errors.Is(err, ErrEmptyPath) {
			t.Errorf("EnsureDir(\"\") error = %v, want ErrEmptyPath", err)
		}
	})

	t.Run("空字节", func(t *testing.T) {
		if err := EnsureDir("a\x00/app.log"); !errors.Is(err, ErrNullByte) {
			t.Errorf("error = %v, want ErrNullByte", err)
		}
	})

	t.Run("权限缺少执行位", func(t *testing.T) {
		err := EnsureDirWithPerm("a/app.log", 0600)
		if !errors.Is(err, ErrInvalidPerm) {
			t.Errorf("error = %v, want ErrInvalidPerm", err)
		}
	})
}
