package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

var _ crawler.BlobStore = (*BlobStore)(nil)

func TestNewValidatesBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{BaseDir: " "})
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = New(Config{BaseDir: file})
	require.ErrorContains(t, err, "not a directory")

	nested := filepath.Join(t.TempDir(), "a", "b")
	_, err = New(Config{BaseDir: nested})
	require.NoError(t, err)
	require.DirExists(t, nested)
}

func TestPutObjectWritesSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "snapshots/domestika/diseno-web/page-1.html", "text/html",
		strings.NewReader("<html></html>"))
	require.NoError(t, err)

	want := filepath.Join(dir, "snapshots", "domestika", "diseno-web", "page-1.html")
	require.Equal(t, "file://"+filepath.ToSlash(want), uri)
	got, err := os.ReadFile(want)
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "probe file should be removed")
}

func TestPutObjectRejectsBadPaths(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "", "text/html", strings.NewReader("x"))
	require.Error(t, err)
	_, err = store.PutObject(context.Background(), "../escape.html", "text/html", strings.NewReader("x"))
	require.ErrorContains(t, err, "escapes base directory")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.PutObject(ctx, "a.html", "text/html", strings.NewReader("x"))
	require.ErrorIs(t, err, context.Canceled)
}
