package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("memory mapped contents")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, int64(len(content)), m.Size())
	assert.Equal(t, content, m.Bytes())

	buf := make([]byte, 6)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "mapped", string(buf))

	// Short read at the tail.
	buf = make([]byte, 100)
	n, err = m.ReadAt(buf, int64(len(content))-8)
	assert.Equal(t, 8, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, int64(len(content)))
	assert.Equal(t, io.EOF, err)
	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, io.EOF, err)
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	assert.EqualValues(t, 0, m.Size())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
