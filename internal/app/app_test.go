package app

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcrawler/internal/config"
	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

const boardListing = `<html><body><ul>
<li class="job-item">
  <h2 class="job-item__title"><a href="/es/jobs/501-ux-designer">UX Designer</a></h2>
  <div class="job-item__company">Estudio Sur</div>
  <div class="job-item__location">Madrid</div>
  <p class="job-item__excerpt">Diseña flujos y prototipos para nuestra plataforma de reservas de viajes.</p>
</li>
</ul></body></html>`

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Crawler.EntryDelayMs = 0
	cfg.Crawler.PageDelayMs = 0
	cfg.Crawler.RequestsPerSecond = 0
	cfg.Crawler.RespectRobots = false
	cfg.Crawler.FetchDetails = false
	cfg.Sources = []config.SourceConfig{
		{Name: "linkedin", Enabled: false},
		{Name: "domestika", Enabled: true, BaseURL: baseURL, Categories: []crawler.CategoryTarget{{ID: "diseno-ux-ui"}}},
	}
	return cfg
}

func TestBuildAndCrawlWithInMemoryBackends(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/es/jobs/area/diseno-ux-ui", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(boardListing))
			return
		}
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a, err := Build(context.Background(), testConfig(t, srv.URL+"/es/jobs"), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })

	require.Equal(t, []string{"domestika"}, a.Manager().Sources())

	summary, err := a.Crawl(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.SourcesRun)
	require.Zero(t, summary.SourcesFailed)
	require.Equal(t, 1, summary.Totals.Persisted)
	require.Len(t, summary.Sources[0].Report.Categories, 1)
	require.Equal(t, "domestika", summary.Sources[0].Report.Categories[0].Category.Source)

	again, err := a.Crawl(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, again.Totals.Duplicates)
	require.Zero(t, again.Totals.Persisted)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/crawl/last", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), again.RunID)
}

func TestCrawlWritesLocalSnapshots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Sin ofertas</p></body></html>`))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := testConfig(t, srv.URL+"/es/jobs")
	cfg.Snapshots.LocalDir = dir
	a, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })

	_, err = a.Crawl(context.Background())
	require.NoError(t, err)

	var files []string
	require.NoError(t, filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return err
	}))
	require.Len(t, files, 1)
	require.Contains(t, filepath.ToSlash(files[0]), "snapshots/domestika/diseno-ux-ui/")
}

func TestBuildRejectsUnknownSource(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Sources = append(cfg.Sources, config.SourceConfig{Name: "monster", Enabled: true})

	a, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()))
	require.ErrorContains(t, err, `unknown source "monster"`)
	require.Nil(t, a)
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Redis.URL = "not-a-redis-url"

	_, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()))
	require.ErrorContains(t, err, "redis init failed")
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Server.Port = 0
	a, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestWithSourceFillsCategoryFields(t *testing.T) {
	t.Parallel()

	got := withSource("domestika", []crawler.CategoryTarget{{ID: "diseno-web"}, {ID: "x", Label: "X"}})
	require.Equal(t, []crawler.CategoryTarget{
		{Source: "domestika", ID: "diseno-web", Label: "diseno-web"},
		{Source: "domestika", ID: "x", Label: "X"},
	}, got)
	require.Nil(t, withSource("domestika", nil))
}
