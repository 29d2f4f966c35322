package headless

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpValidation(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1}, nil, nil)
	require.Error(t, err)

	fetcher, err := NewChromedp(Config{MaxParallel: 2}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(fetcher.Close)
	require.Equal(t, 2, cap(fetcher.slots))
	require.Equal(t, "body", fetcher.cfg.WaitSelector)
}

func TestNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{}
	require.Equal(t, defaultNavigationTimeout, fetcher.navTimeout())
	fetcher.cfg.NavigationTimeout = time.Second
	require.Equal(t, time.Second, fetcher.navTimeout())
}

func TestExtraHeaders(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{cfg: Config{AcceptLanguage: "es-ES"}}
	require.Equal(t, network.Headers{"Accept-Language": "es-ES"}, fetcher.extraHeaders())
	require.Empty(t, (&Fetcher{}).extraHeaders())
}

func TestDocumentStatusKeepsFirstDocument(t *testing.T) {
	t.Parallel()

	status := &documentStatus{}
	require.Equal(t, http.StatusOK, status.code())

	status.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500},
	})
	require.Equal(t, http.StatusOK, status.code())

	status.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404},
	})
	status.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200},
	})
	require.Equal(t, http.StatusNotFound, status.code())
}

func TestSlotsHonorContext(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{slots: make(chan struct{}, 1)}
	require.NoError(t, fetcher.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, fetcher.acquire(ctx))

	fetcher.release()
	require.NoError(t, fetcher.acquire(context.Background()))
}
