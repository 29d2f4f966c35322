// Package source drives one job board through its categories and listing
// pages, turning located entries into persisted job records.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/dedup"
	"github.com/JakeFAU/jobcrawler/internal/filter"
	"github.com/JakeFAU/jobcrawler/internal/metrics"
)

// DefaultMaxPages bounds paging per category when Config leaves it unset.
const DefaultMaxPages = 3

// Site is implemented once per job board. It knows the board's URLs and
// markup; the Scraper owns paging, pacing, validation and persistence.
type Site interface {
	Name() string
	Categories() []crawler.CategoryTarget
	PageURL(cat crawler.CategoryTarget, page int) string
	ListEntries(page *crawler.Page) []crawler.RawEntry
	ExtractOne(ctx context.Context, entry crawler.RawEntry) crawler.Result
}

// Persister stores a validated record once per source URL.
type Persister interface {
	Persist(ctx context.Context, rec crawler.Record) (dedup.Outcome, error)
}

// Config tunes paging and pacing.
type Config struct {
	MaxPages   int
	EntryDelay time.Duration
	PageDelay  time.Duration
	Policy     crawler.FilterPolicy
	// SnapshotPrefix is the object path prefix for listing snapshots.
	SnapshotPrefix string
}

// Scraper runs a Site. It implements crawler.SourceScraper.
type Scraper struct {
	site      Site
	fetcher   crawler.Fetcher
	persister Persister
	snapshots crawler.BlobStore
	pauser    crawler.Pauser
	cfg       Config
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithSnapshots stores raw listing HTML when a page looks broken.
func WithSnapshots(store crawler.BlobStore) Option {
	return func(s *Scraper) { s.snapshots = store }
}

// WithPauser replaces the timer-based pauser.
func WithPauser(p crawler.Pauser) Option {
	return func(s *Scraper) { s.pauser = p }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScraper wires a Site to the shared pipeline.
func NewScraper(site Site, fetcher crawler.Fetcher, persister Persister, cfg Config, opts ...Option) *Scraper {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.SnapshotPrefix == "" {
		cfg.SnapshotPrefix = "snapshots"
	}
	s := &Scraper{
		site:      site,
		fetcher:   fetcher,
		persister: persister,
		pauser:    crawler.TimerPauser{},
		cfg:       cfg,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("github.com/JakeFAU/jobcrawler/internal/source"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("source").With(zap.String("source", site.Name()))
	return s
}

// Name returns the site name.
func (s *Scraper) Name() string {
	return s.site.Name()
}

// Run walks every category. A failing category is recorded in the report and
// the remaining categories still run; Run itself only fails when ctx is done
// before any category could start.
func (s *Scraper) Run(ctx context.Context) (crawler.SourceReport, error) {
	ctx, span := s.tracer.Start(ctx, "source.run", trace.WithAttributes(attribute.String("source", s.Name())))
	defer span.End()

	report := crawler.SourceReport{Source: s.Name(), StartedAt: s.now().UTC()}
	for _, cat := range s.site.Categories() {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			report.FinishedAt = s.now().UTC()
			return report, fmt.Errorf("source %s: %w", s.Name(), err)
		}
		catReport := s.runCategory(ctx, cat)
		report.Categories = append(report.Categories, catReport)
		report.Stats.Add(catReport.Stats)
	}
	report.FinishedAt = s.now().UTC()
	span.SetAttributes(
		attribute.Int("persisted", report.Stats.Persisted),
		attribute.Int("errors", report.Stats.Errors),
	)
	s.logger.Info("source finished",
		zap.Int("pages", report.Stats.PagesVisited),
		zap.Int("found", report.Stats.CandidatesFound),
		zap.Int("valid", report.Stats.CandidatesValid),
		zap.Int("persisted", report.Stats.Persisted),
		zap.Int("duplicates", report.Stats.Duplicates),
		zap.Int("rejected", report.Stats.Rejected),
		zap.Int("errors", report.Stats.Errors),
		zap.Int("categories_failed", report.Stats.CategoriesFailed),
	)
	return report, nil
}

func (s *Scraper) runCategory(ctx context.Context, cat crawler.CategoryTarget) (report crawler.CategoryReport) {
	ctx, span := s.tracer.Start(ctx, "source.category", trace.WithAttributes(attribute.String("category", cat.ID)))
	defer span.End()

	report.Category = cat
	logger := s.logger.With(zap.String("category", cat.ID))
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			logger.Error("category panicked", zap.Error(err), zap.ByteString("stack", debug.Stack()))
			s.failCategory(&report, span, err)
		}
	}()

	for page := 1; page <= s.cfg.MaxPages; page++ {
		more, err := s.runPage(ctx, cat, page, &report.Stats, logger)
		if err != nil {
			logger.Warn("category aborted", zap.Int("page", page), zap.Error(err))
			s.failCategory(&report, span, err)
			return report
		}
		if !more {
			logger.Debug("listing exhausted", zap.Int("page", page))
			break
		}
		if page < s.cfg.MaxPages {
			s.pauser.Pause(ctx, s.cfg.PageDelay)
		}
	}
	return report
}

func (s *Scraper) failCategory(report *crawler.CategoryReport, span trace.Span, err error) {
	report.Error = err.Error()
	report.Stats.Errors++
	report.Stats.CategoriesFailed = 1
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// runPage processes one listing page and reports whether paging may continue.
func (s *Scraper) runPage(ctx context.Context, cat crawler.CategoryTarget, pageNum int, stats *crawler.RunStatistics, logger *zap.Logger) (bool, error) {
	pageURL := s.site.PageURL(cat, pageNum)
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return false, err
	}
	stats.PagesVisited++

	entries := s.site.ListEntries(page)
	if len(entries) == 0 {
		if pageNum == 1 {
			s.snapshot(ctx, cat, pageNum, page, "no entries on first page")
		}
		return false, nil
	}
	stats.CandidatesFound += len(entries)

	extractionFailed := false
	for _, entry := range entries {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if s.processEntry(ctx, entry, stats, logger) {
			extractionFailed = true
		}
		s.pauser.Pause(ctx, s.cfg.EntryDelay)
	}
	if extractionFailed {
		s.snapshot(ctx, cat, pageNum, page, "extraction failures")
	}
	return true, nil
}

// processEntry runs extract, validate and persist for one entry. It reports
// whether extraction failed so the page can be snapshotted.
func (s *Scraper) processEntry(ctx context.Context, entry crawler.RawEntry, stats *crawler.RunStatistics, logger *zap.Logger) (extractionFailed bool) {
	res := s.extract(ctx, entry)
	switch res.Kind {
	case crawler.ResultSkip:
		stats.Rejected++
		metrics.ObserveCandidate(s.Name(), metrics.OutcomeRejected)
		logger.Debug("candidate skipped", zap.String("reason", res.Reason), zap.Int("index", entry.Index))
		return false
	case crawler.ResultError:
		stats.Errors++
		metrics.ObserveCandidate(s.Name(), metrics.OutcomeError)
		logger.Warn("extraction failed", zap.Int("index", entry.Index), zap.String("page", entry.PageURL), zap.Error(res.Err))
		return true
	}

	rec := res.Record
	if reason := filter.Check(rec, s.cfg.Policy); reason != "" {
		stats.Rejected++
		metrics.ObserveCandidate(s.Name(), metrics.OutcomeRejected)
		logger.Debug("candidate rejected", zap.String("reason", filter.Describe(reason, rec)), zap.String("url", rec.SourceURL))
		return false
	}
	stats.CandidatesValid++

	outcome, err := s.persister.Persist(ctx, rec)
	switch {
	case err != nil:
		stats.Errors++
		metrics.ObserveCandidate(s.Name(), metrics.OutcomeError)
		logger.Error("persist failed", zap.String("url", rec.SourceURL), zap.Error(err))
	case outcome == dedup.OutcomeDuplicate:
		stats.Duplicates++
		metrics.ObserveCandidate(s.Name(), metrics.OutcomeDuplicate)
	default:
		stats.Persisted++
		metrics.ObserveCandidate(s.Name(), metrics.OutcomePersisted)
		logger.Info("job persisted", zap.String("title", rec.Title), zap.String("company", rec.Company), zap.String("url", rec.SourceURL))
	}
	return false
}

// extract calls the site and converts a panic into a failed result.
func (s *Scraper) extract(ctx context.Context, entry crawler.RawEntry) (res crawler.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = crawler.Fail(&crawler.ExtractionError{
				Source: s.Name(),
				URL:    entry.PageURL,
				Err:    fmt.Errorf("panic at entry %d: %v", entry.Index, r),
			})
		}
	}()
	res = s.site.ExtractOne(ctx, entry)
	if res.Kind == crawler.ResultError && res.Err == nil {
		res.Err = errors.New("extraction failed")
	}
	return res
}

func (s *Scraper) snapshot(ctx context.Context, cat crawler.CategoryTarget, pageNum int, page *crawler.Page, reason string) {
	if s.snapshots == nil || page == nil || len(page.Body) == 0 {
		return
	}
	path := fmt.Sprintf("%s/%s/%s/%s-page-%d.html",
		strings.Trim(s.cfg.SnapshotPrefix, "/"),
		s.Name(),
		safePathSegment(cat.ID),
		s.now().UTC().Format("20060102T150405Z"),
		pageNum,
	)
	uri, err := s.snapshots.PutObject(ctx, path, "text/html; charset=utf-8", bytes.NewReader(page.Body))
	if err != nil {
		s.logger.Warn("snapshot failed", zap.String("path", path), zap.Error(err))
		return
	}
	metrics.ObserveSnapshot(s.Name())
	s.logger.Info("listing snapshot stored", zap.String("uri", uri), zap.String("reason", reason))
}

func safePathSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
