package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchLocalFile(t *testing.T) {
	content := "# Two Centuries on Two Wheels\n\nThe bicycle began as a running machine in 1817.\n"
	path := filepath.Join(t.TempDir(), "source.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	f := New(time.Minute)
	got, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Two Centuries on Two Wheels", got.Title)
	assert.Equal(t, content, got.Content)
	assert.Equal(t, path, got.Source)
	assert.Equal(t, 15, got.WordCount)
}

func TestFetchLocalFileWithoutHeading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text body"), 0644))

	f := New(time.Minute)
	got, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	// Falls back to the filename when the file has no markdown title.
	assert.Equal(t, "notes", got.Title)
	assert.Equal(t, 3, got.WordCount)
}

func TestFetchMissingFile(t *testing.T) {
	f := New(time.Minute)
	_, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}
