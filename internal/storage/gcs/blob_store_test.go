package gcs

import (
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesInput(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "snapshots"})
	require.Error(t, err)

	_, err = New(&storage.Client{}, Config{})
	require.Error(t, err)

	store, err := New(&storage.Client{}, Config{Bucket: "snapshots", Prefix: "/jobcrawler/"})
	require.NoError(t, err)
	require.Equal(t, "jobcrawler/linkedin/a.html", store.objectPath("linkedin/a.html"))
}
