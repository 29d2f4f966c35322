package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("<html></html>")
	uri, err := store.PutObject(context.Background(), "snapshots/linkedin/page.html", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://snapshots/linkedin/page.html", uri)

	payload[0] = 'X'
	got, ok := store.Object("snapshots/linkedin/page.html")
	require.True(t, ok)
	require.Equal(t, "<html></html>", string(got))
	require.Equal(t, []string{"snapshots/linkedin/page.html"}, store.Paths())
}
