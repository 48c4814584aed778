package sample

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"malsig/pkg/types"
)

func writeTempSample(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadReadsContentAndMetadata(t *testing.T) {
	content := []byte("sample body with some bytes")
	path := writeTempSample(t, "a.bin", content)

	s, err := Load(context.Background(), path, 0)
	require.NoError(t, err)

	assert.Equal(t, path, s.Path)
	assert.Equal(t, content, s.Data)
	assert.Equal(t, int64(len(content)), s.Meta.Size)
	assert.NotZero(t, s.Meta.ModificationTime)
	assert.InDelta(t, time.Now().Unix(), s.Meta.ModificationTime, 60)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.bin"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestLoadDirectoryIsNotASample(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir(), 0)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestLoadEnforcesSizeLimit(t *testing.T) {
	path := writeTempSample(t, "big.bin", bytes.Repeat([]byte{0xcc}, 2048))

	_, err := Load(context.Background(), path, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")

	s, err := Load(context.Background(), path, 2048)
	require.NoError(t, err)
	assert.Len(t, s.Data, 2048)
}

func TestLoadCancelledContext(t *testing.T) {
	path := writeTempSample(t, "c.bin", []byte("content"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, path, 0)
	assert.ErrorIs(t, err, types.ErrIOTimeout)
}

func TestLoadSpansMultipleChunks(t *testing.T) {
	content := bytes.Repeat([]byte("chunked "), 32*1024) // 256 KiB, four read chunks
	path := writeTempSample(t, "chunks.bin", content)

	s, err := Load(context.Background(), path, 0)
	require.NoError(t, err)
	assert.Equal(t, content, s.Data)
}

func TestTypeGuess(t *testing.T) {
	assert.Contains(t, (&Sample{Path: "report.html"}).TypeGuess(), "text/html")

	exe := &Sample{Path: "payload.qqq", Data: []byte("MZ\x90\x00\x03")}
	assert.Equal(t, "application/octet-stream", exe.TypeGuess())

	text := &Sample{Path: "notes.qqq", Data: []byte("just plain words")}
	assert.Contains(t, text.TypeGuess(), "text/plain")

	assert.Equal(t, "unknown", (&Sample{Path: "nothing.qqq"}).TypeGuess())
}
