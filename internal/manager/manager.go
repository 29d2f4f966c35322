// Package manager runs every registered source scraper with failure isolation
// and aggregates their reports into a run summary.
package manager

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobcrawler/internal/clock/system"
	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/metrics"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("crawl run already in progress")

// Config tunes the manager.
type Config struct {
	// MaxParallelSources bounds concurrent source runs. Values below one run
	// the sources one after another.
	MaxParallelSources int
	// Clock stamps run boundaries. Nil uses the system clock.
	Clock crawler.Clock
}

// Manager owns the source registry.
type Manager struct {
	sources []crawler.SourceScraper
	ids     crawler.IDGenerator
	cfg     Config
	logger  *zap.Logger
	tracer  trace.Tracer
	clock   crawler.Clock

	running atomic.Bool
	mu      sync.RWMutex
	last    *crawler.RunSummary
}

// New builds a Manager. The registry order is the order sources appear in
// the summary.
func New(sources []crawler.SourceScraper, ids crawler.IDGenerator, cfg Config, logger *zap.Logger) *Manager {
	if cfg.MaxParallelSources < 1 {
		cfg.MaxParallelSources = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = system.New()
	}
	return &Manager{
		sources: append([]crawler.SourceScraper(nil), sources...),
		ids:     ids,
		cfg:     cfg,
		logger:  logger.Named("manager"),
		tracer:  otel.Tracer("github.com/JakeFAU/jobcrawler/internal/manager"),
		clock:   clock,
	}
}

// Sources returns the registered source names.
func (m *Manager) Sources() []string {
	names := make([]string, 0, len(m.sources))
	for _, src := range m.sources {
		names = append(names, src.Name())
	}
	return names
}

// Run executes every source once. A failing or panicking source is recorded
// as rejected and never stops the others. The only errors are
// ErrRunInProgress and a failure to generate the run ID.
func (m *Manager) Run(ctx context.Context) (crawler.RunSummary, error) {
	if !m.running.CompareAndSwap(false, true) {
		return crawler.RunSummary{}, ErrRunInProgress
	}
	defer m.running.Store(false)

	runID, err := m.newRunID()
	if err != nil {
		return crawler.RunSummary{}, err
	}
	ctx, span := m.tracer.Start(ctx, "manager.run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	logger := m.logger.With(zap.String("run_id", runID))
	logger.Info("crawl run started", zap.Strings("sources", m.Sources()))

	summary := crawler.RunSummary{
		RunID:     runID,
		StartedAt: m.clock.Now().UTC(),
		Sources:   make([]crawler.SourceOutcome, len(m.sources)),
	}

	var g errgroup.Group
	g.SetLimit(m.cfg.MaxParallelSources)
	for i, src := range m.sources {
		g.Go(func() error {
			summary.Sources[i] = m.runSource(ctx, src, logger)
			return nil
		})
	}
	_ = g.Wait()

	for _, outcome := range summary.Sources {
		summary.SourcesRun++
		if outcome.Status == crawler.SourceRejected {
			summary.SourcesFailed++
		}
		if outcome.Report != nil {
			summary.Totals.Add(outcome.Report.Stats)
		}
	}
	summary.FinishedAt = m.clock.Now().UTC()
	span.SetAttributes(
		attribute.Int("sources_failed", summary.SourcesFailed),
		attribute.Int("persisted", summary.Totals.Persisted),
	)

	logger.Info("crawl run finished",
		zap.Int("sources_run", summary.SourcesRun),
		zap.Int("sources_failed", summary.SourcesFailed),
		zap.Int("persisted", summary.Totals.Persisted),
		zap.Int("duplicates", summary.Totals.Duplicates),
		zap.Int("errors", summary.Totals.Errors),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	m.mu.Lock()
	m.last = &summary
	m.mu.Unlock()
	return summary, nil
}

// Last returns the most recent summary, if any run has finished.
func (m *Manager) Last() (crawler.RunSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return crawler.RunSummary{}, false
	}
	return *m.last, true
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	return m.running.Load()
}

func (m *Manager) runSource(ctx context.Context, src crawler.SourceScraper, logger *zap.Logger) (outcome crawler.SourceOutcome) {
	name := src.Name()
	outcome.Source = name
	start := m.clock.Now()
	metrics.IncActiveSources()
	defer metrics.DecActiveSources()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("source %s panicked: %v", name, r)
			logger.Error("source panicked", zap.String("source", name), zap.Error(err), zap.ByteString("stack", debug.Stack()))
			outcome.Status = crawler.SourceRejected
			outcome.Error = err.Error()
			outcome.Report = nil
		}
		metrics.ObserveSourceRun(name, outcome.Status, m.clock.Since(start))
	}()

	report, err := src.Run(ctx)
	if err != nil {
		logger.Error("source failed", zap.String("source", name), zap.Error(err))
		outcome.Status = crawler.SourceRejected
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Status = crawler.SourceFulfilled
	outcome.Report = &report
	return outcome
}

func (m *Manager) newRunID() (string, error) {
	if m.ids == nil {
		return fmt.Sprintf("run-%d", m.clock.Now().UnixNano()), nil
	}
	id, err := m.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id, nil
}
