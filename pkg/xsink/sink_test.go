package xsink

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xalog/pkg/xbuffer"
	"github.com/omeyang/xalog/pkg/xrotate"
)

func makeChunk(t *testing.T, recs ...string) *xbuffer.Chunk {
	t.Helper()
	buf, err := xbuffer.New(xbuffer.MinBufferSize)
	require.NoError(t, err)
	for _, r := range recs {
		buf.Append([]byte(r), -1)
	}
	ch := buf.SwapAndTake()
	require.NotNil(t, ch)
	return ch
}

// =============================================================================
// FileSink
// =============================================================================

func TestFileSink(t *testing.T) {
	t.Run("缺少轮转器", func(t *testing.T) {
		_, err := NewFile(nil)
		require.ErrorIs(t, err, ErrNilRotator)
	})

	t.Run("写入并关闭", func(t *testing.T) {
		rot, err := xrotate.NewIndex(filepath.Join(t.TempDir(), "app.log"))
		require.NoError(t, err)
		s, err := NewFile(rot)
		require.NoError(t, err)

		require.NoError(t, s.WriteChunk(makeChunk(t, "one\n", "two\n")))
		require.NoError(t, s.Close())

		err = s.WriteChunk(makeChunk(t, "after close\n"))
		require.ErrorIs(t, err, xrotate.ErrClosed)
	})
}

// =============================================================================
// WriterSink
// =============================================================================

func TestWriterSink(t *testing.T) {
	t.Run("缺少writer", func(t *testing.T) {
		_, err := NewWriter(nil)
		require.ErrorIs(t, err, ErrNilWriter)
	})

	t.Run("写入任意writer", func(t *testing.T) {
		var out bytes.Buffer
		s, err := NewWriter(&out)
		require.NoError(t, err)

		require.NoError(t, s.WriteChunk(makeChunk(t, "hello\n")))
		assert.Equal(t, "hello\n", out.String())

		// Close 不关闭底层 writer，继续写入不受影响。
		require.NoError(t, s.Close())
		require.NoError(t, s.WriteChunk(makeChunk(t, "still open\n")))
		assert.Equal(t, "hello\nstill open\n", out.String())
	})
}

// =============================================================================
// MultiSink
// =============================================================================

type failingSink struct{ err error }

func (f *failingSink) WriteChunk(*xbuffer.Chunk) error { return f.err }
func (f *failingSink) Close() error                    { return f.err }

func TestMultiSink(t *testing.T) {
	t.Run("全部成员都收到", func(t *testing.T) {
		var a, b bytes.Buffer
		sa, err := NewWriter(&a)
		require.NoError(t, err)
		sb, err := NewWriter(&b)
		require.NoError(t, err)

		m := NewMulti(sa, nil, sb)
		require.NoError(t, m.WriteChunk(makeChunk(t, "fanout\n")))
		assert.Equal(t, "fanout\n", a.String())
		assert.Equal(t, "fanout\n", b.String())
	})

	t.Run("单个失败不阻断其余", func(t *testing.T) {
		var ok bytes.Buffer
		good, err := NewWriter(&ok)
		require.NoError(t, err)
		bad := &failingSink{err: errors.New("sink down")}

		m := NewMulti(bad, good)
		err = m.WriteChunk(makeChunk(t, "payload\n"))
		require.Error(t, err)
		assert.Equal(t, "payload\n", ok.String(), "失败成员不影响其余交付")

		err = m.Close()
		require.Error(t, err)
	})
}
