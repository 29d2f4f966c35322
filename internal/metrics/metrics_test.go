package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, pagesTotal)
	require.NotNil(t, candidatesTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObserveHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(pagesTotal.WithLabelValues("jobs.example.org", "200"))
	ObservePage("https://Jobs.Example.org/search?page=2", "200", 512)
	require.Equal(t, before+1, testutil.ToFloat64(pagesTotal.WithLabelValues("jobs.example.org", "200")))
	require.GreaterOrEqual(t, testutil.ToFloat64(fetchBytesTotal.WithLabelValues("jobs.example.org")), 512.0)

	beforeDup := testutil.ToFloat64(candidatesTotal.WithLabelValues("metrics-test", OutcomeDuplicate))
	ObserveCandidate("metrics-test", OutcomeDuplicate)
	ObserveCandidate("metrics-test", OutcomeDuplicate)
	require.Equal(t, beforeDup+2, testutil.ToFloat64(candidatesTotal.WithLabelValues("metrics-test", OutcomeDuplicate)))

	ObserveSourceRun("metrics-test", "fulfilled", 3*time.Second)
	require.Equal(t, 1.0, testutil.ToFloat64(sourceRunsTotal.WithLabelValues("metrics-test", "fulfilled")))

	ObserveSnapshot("metrics-test")
	require.Equal(t, 1.0, testutil.ToFloat64(snapshotsTotal.WithLabelValues("metrics-test")))
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
