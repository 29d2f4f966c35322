package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/dedup"
	"github.com/JakeFAU/jobcrawler/internal/storage/memory"
)

const longDescription = "Design end-to-end experiences for our marketplace with a small, senior team."

// fakeFetcher serves canned HTML by URL; unknown URLs fail.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*crawler.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return nil, &crawler.FetchError{URL: url, StatusCode: 503, Err: errors.New("service unavailable")}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &crawler.Page{URL: url, StatusCode: 200, Body: []byte(body), Doc: doc}, nil
}

// fakeSite reads job fields from data attributes.
type fakeSite struct {
	categories []crawler.CategoryTarget
	panicOn    string
}

func (fakeSite) Name() string { return "fake" }

func (s fakeSite) Categories() []crawler.CategoryTarget { return s.categories }

func (fakeSite) PageURL(cat crawler.CategoryTarget, page int) string {
	return fmt.Sprintf("https://fake.test/%s?page=%d", cat.ID, page)
}

func (s fakeSite) ListEntries(page *crawler.Page) []crawler.RawEntry {
	if s.panicOn != "" && strings.Contains(page.URL, s.panicOn) {
		panic("unexpected markup")
	}
	var out []crawler.RawEntry
	page.Doc.Find(".job").Each(func(i int, sel *goquery.Selection) {
		out = append(out, crawler.RawEntry{PageURL: page.URL, Index: i, Selection: sel})
	})
	return out
}

func (fakeSite) ExtractOne(_ context.Context, entry crawler.RawEntry) crawler.Result {
	sel := entry.Selection
	if _, ok := sel.Attr("data-panic"); ok {
		var m map[string]string
		m["boom"] = "x"
	}
	if reason, ok := sel.Attr("data-skip"); ok {
		return crawler.Skip(reason)
	}
	rec := crawler.Record{
		Title:          sel.AttrOr("data-title", ""),
		Company:        sel.AttrOr("data-company", ""),
		Description:    sel.AttrOr("data-desc", longDescription),
		SourceURL:      sel.AttrOr("data-url", ""),
		SourcePlatform: "fake",
	}
	if missing := rec.MissingFields(); len(missing) > 0 && rec.Company == "" {
		return crawler.Fail(&crawler.ExtractionError{Source: "fake", Title: rec.Title, Fields: []string{"company"}})
	}
	return crawler.OK(rec)
}

type countingPauser struct {
	mu    sync.Mutex
	delay map[time.Duration]int
}

func (p *countingPauser) Pause(_ context.Context, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delay == nil {
		p.delay = map[time.Duration]int{}
	}
	p.delay[d]++
}

func job(title, company, url string) string {
	return fmt.Sprintf(`<div class="job" data-title=%q data-company=%q data-url=%q></div>`, title, company, url)
}

func listing(jobs ...string) string {
	return "<html><body>" + strings.Join(jobs, "") + "</body></html>"
}

func newScraper(site Site, fetcher crawler.Fetcher, store *memory.JobStore, opts ...Option) *Scraper {
	cfg := Config{
		MaxPages:   3,
		EntryDelay: time.Millisecond,
		PageDelay:  time.Second,
		Policy:     crawler.FilterPolicy{RoleKeywords: []string{"designer"}},
	}
	return NewScraper(site, fetcher, dedup.New(store, nil, nil, dedup.Config{}, nil), cfg, opts...)
}

func TestRunPagesUntilEmptyAndPersists(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://fake.test/ux?page=1": listing(
			job("UX Designer", "Acme", "https://fake.test/jobs/1"),
			job("Backend Engineer", "Acme", "https://fake.test/jobs/2"),
		),
		"https://fake.test/ux?page=2": listing(
			job("Product Designer", "Globex", "https://fake.test/jobs/3"),
			job("UX Designer", "Acme", "https://fake.test/jobs/1"),
		),
		"https://fake.test/ux?page=3": listing(),
	}}
	pauser := &countingPauser{}
	store := memory.NewJobStore()
	s := newScraper(fakeSite{categories: []crawler.CategoryTarget{{ID: "ux"}}}, fetcher, store, WithPauser(pauser))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fake", report.Source)

	stats := report.Stats
	require.Equal(t, 3, stats.PagesVisited)
	require.Equal(t, 4, stats.CandidatesFound)
	require.Equal(t, 3, stats.CandidatesValid)
	require.Equal(t, 2, stats.Persisted)
	require.Equal(t, 1, stats.Duplicates)
	require.Equal(t, 1, stats.Rejected)
	require.Zero(t, stats.Errors)
	require.Equal(t, 2, store.Len())

	require.Equal(t, 4, pauser.delay[time.Millisecond])
	require.Equal(t, 2, pauser.delay[time.Second])
}

func TestRunRespectsMaxPages(t *testing.T) {
	t.Parallel()

	pages := map[string]string{}
	for i := 1; i <= 5; i++ {
		pages[fmt.Sprintf("https://fake.test/ux?page=%d", i)] = listing(
			job("UX Designer", "Acme", fmt.Sprintf("https://fake.test/jobs/%d", i)),
		)
	}
	fetcher := &fakeFetcher{pages: pages}
	s := newScraper(fakeSite{categories: []crawler.CategoryTarget{{ID: "ux"}}}, fetcher, memory.NewJobStore(), WithPauser(&countingPauser{}))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Stats.PagesVisited)
	require.Len(t, fetcher.calls, 3)
}

func TestRunIsolatesFailingCategory(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://fake.test/first?page=1":  listing(job("UX Designer", "Acme", "https://fake.test/jobs/a")),
		"https://fake.test/first?page=2":  listing(),
		"https://fake.test/second?page=1": listing(job("UX Designer", "Acme", "https://fake.test/jobs/b")),
		"https://fake.test/third?page=1":  listing(job("UI Designer", "Initech", "https://fake.test/jobs/c")),
		"https://fake.test/third?page=2":  listing(),
	}}
	site := fakeSite{
		categories: []crawler.CategoryTarget{{ID: "first"}, {ID: "second"}, {ID: "third"}},
		panicOn:    "/second",
	}
	s := newScraper(site, fetcher, memory.NewJobStore(), WithPauser(&countingPauser{}))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Categories, 3)
	require.Empty(t, report.Categories[0].Error)
	require.Contains(t, report.Categories[1].Error, "unexpected markup")
	require.Empty(t, report.Categories[2].Error)
	require.Equal(t, 2, report.Stats.Persisted)
	require.Equal(t, 1, report.Stats.CategoriesFailed)
	require.Equal(t, 1, report.Stats.Errors)
}

func TestRunCountsListingFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://fake.test/ok?page=1": listing(job("UX Designer", "Acme", "https://fake.test/jobs/1")),
		"https://fake.test/ok?page=2": listing(),
	}}
	site := fakeSite{categories: []crawler.CategoryTarget{{ID: "down"}, {ID: "ok"}}}
	s := newScraper(site, fetcher, memory.NewJobStore(), WithPauser(&countingPauser{}))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, report.Categories[0].Error, "status 503")
	require.Equal(t, 1, report.Stats.Persisted)
	require.Equal(t, 1, report.Stats.CategoriesFailed)
}

func TestRunEntryFailuresDoNotAbortSiblings(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://fake.test/ux?page=1": listing(
			`<div class="job" data-panic="1"></div>`,
			job("UX Designer", "", "https://fake.test/jobs/1"),
			`<div class="job" data-skip="role_mismatch"></div>`,
			`<div class="job" data-title="UX Designer" data-company="Acme" data-url="https://fake.test/jobs/2" data-desc="Too short to keep."></div>`,
			job("UX Designer", "Acme", "https://fake.test/jobs/3"),
		),
		"https://fake.test/ux?page=2": listing(),
	}}
	blobs := memory.NewBlobStore()
	store := memory.NewJobStore()
	s := newScraper(fakeSite{categories: []crawler.CategoryTarget{{ID: "ux"}}}, fetcher, store,
		WithPauser(&countingPauser{}), WithSnapshots(blobs))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, report.Stats.CandidatesFound)
	require.Equal(t, 2, report.Stats.Errors)
	require.Equal(t, 2, report.Stats.Rejected)
	require.Equal(t, 1, report.Stats.Persisted)
	require.Zero(t, report.Stats.CategoriesFailed)
	require.Equal(t, 1, store.Len())

	paths := blobs.Paths()
	require.Len(t, paths, 1)
	require.True(t, strings.HasPrefix(paths[0], "snapshots/fake/ux/"))
	require.True(t, strings.HasSuffix(paths[0], "-page-1.html"))
}

func TestRunSnapshotsEmptyFirstPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://fake.test/ux?page=1": "<html><body><p>Please enable JavaScript</p></body></html>",
	}}
	blobs := memory.NewBlobStore()
	s := newScraper(fakeSite{categories: []crawler.CategoryTarget{{ID: "ux"}}}, fetcher, memory.NewJobStore(),
		WithPauser(&countingPauser{}), WithSnapshots(blobs))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Stats.PagesVisited)
	require.Zero(t, report.Stats.CandidatesFound)
	require.Len(t, blobs.Paths(), 1)
}

func TestRunCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newScraper(fakeSite{categories: []crawler.CategoryTarget{{ID: "ux"}}}, &fakeFetcher{}, memory.NewJobStore())

	_, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSafePathSegment(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ux-designer", safePathSegment("UX Designer"))
	require.Equal(t, "default", safePathSegment(" "))
	require.Equal(t, "a-b", safePathSegment("a/b"))
}
