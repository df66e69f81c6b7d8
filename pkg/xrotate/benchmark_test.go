package xrotate

import (
	"path/filepath"
	"strings"
	"testing"
)

func BenchmarkIndexWrite(b *testing.B) {
	r, err := NewIndex(filepath.Join(b.TempDir(), "bench.log"),
		WithMaxFileSize(64<<20),
	)
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	chunk := []byte(strings.Repeat("benchmark log line payload\n", 64))
	b.SetBytes(int64(len(chunk)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Write(chunk); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIndexRotate(b *testing.B) {
	r, err := NewIndex(filepath.Join(b.TempDir(), "bench.log"), WithMaxFiles(4))
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	line := []byte("one line before each rotation\n")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Write(line); err != nil {
			b.Fatal(err)
		}
		if err := r.Rotate(); err != nil {
			b.Fatal(err)
		}
	}
}
