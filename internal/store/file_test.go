package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/wxarchive/internal/weather"
)

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive", "wx.jsonl")

	fs, err := OpenFileStore(path)
	require.NoError(t, err)

	n, err := fs.SaveRecords([]weather.Record{record(0, 1), record(5, 2)}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = fs.SaveRecords([]weather.Record{record(10, 3)}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))

	// Out-of-order insert and overwrite force a rewrite.
	_, err = fs.SaveRecords([]weather.Record{record(-5, 0), record(10, 30)}, true)
	require.NoError(t, err)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)

	want, err := fs.Range(base.Add(-5*time.Minute), base.Add(10*time.Minute))
	require.NoError(t, err)
	got, err := reopened.Range(base.Add(-5*time.Minute), base.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 4)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reloaded archive differs (-want +got):\n%s", diff)
	}
	assert.Equal(t, 30.0, got[3].Values["outTemp"])
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wx.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json\n"), 0o644))
	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestFileStoreFailedAppendIsRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wx.jsonl")
	fs, err := OpenFileStore(path)
	require.NoError(t, err)

	// A directory in place of the archive makes the append fail.
	require.NoError(t, os.Mkdir(path, 0o755))
	n, err := fs.SaveRecords([]weather.Record{record(0, 1)}, false)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, fs.Has(base))
	assert.Equal(t, 0, fs.mem.Len())

	require.NoError(t, os.Remove(path))
	n, err = fs.SaveRecords([]weather.Record{record(0, 1)}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, fs.Has(base))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	assert.True(t, reopened.Has(base))
}

func TestFileStoreFailedRewriteKeepsMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wx.jsonl")
	fs, err := OpenFileStore(path)
	require.NoError(t, err)
	_, err = fs.SaveRecords([]weather.Record{record(0, 1)}, false)
	require.NoError(t, err)

	// The rename onto a non-empty directory fails.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "keep"), 0o755))

	n, err := fs.SaveRecords([]weather.Record{record(-5, 0), record(0, 10)}, true)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, fs.Has(base.Add(-5*time.Minute)))
	latest, err := fs.Latest()
	require.NoError(t, err)
	assert.Equal(t, 1.0, latest.Values["outTemp"])

	require.NoError(t, os.RemoveAll(path))
	n, err = fs.SaveRecords([]weather.Record{record(-5, 0), record(0, 10)}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Range(base.Add(-5*time.Minute), base)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[1].Values["outTemp"])
}
