// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/metrics"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultUserAgent      = "jobcrawler/1.0 (+https://github.com/JakeFAU/jobcrawler)"
	DefaultAcceptLanguage = "es-ES,es;q=0.9,en;q=0.8"
	DefaultTimeout        = 10 * time.Second
)

// Waiter paces requests per host.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	RespectRobots  bool
	Timeout        time.Duration
}

// Fetcher implements crawler.Fetcher using the Colly collector. It performs
// exactly one GET per call and never retries.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	logger        *zap.Logger
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type fetchState struct {
	page   *crawler.Page
	status int
	err    error
}

// New builds a Fetcher. limiter may be nil.
func New(cfg Config, limiter Waiter, logger *zap.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = DefaultAcceptLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		logger:        logger.Named("colly"),
		baseCollector: c,
	}
}

// Fetch GETs url and parses the body into a goquery document.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*crawler.Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return nil, &crawler.FetchError{URL: url, Err: err}
		}
	}

	state := &fetchState{}
	collector := f.buildCollector(time.Now(), state)
	if err := f.runCollector(ctx, collector, url); err != nil {
		if ctx.Err() != nil {
			// The visit goroutine may still be writing state.
			return nil, &crawler.FetchError{URL: url, Err: err}
		}
		if state.err != nil {
			err = state.err
		}
		metrics.ObservePage(url, statusLabel(state.status), 0)
		f.logger.Debug("fetch failed", zap.String("url", url), zap.Int("status", state.status), zap.Error(err))
		return nil, &crawler.FetchError{URL: url, StatusCode: state.status, Err: err}
	}
	if state.page == nil {
		return nil, &crawler.FetchError{URL: url, Err: errors.New("no response received")}
	}
	metrics.ObservePage(url, statusLabel(state.page.StatusCode), len(state.page.Body))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(state.page.Body))
	if err != nil {
		return nil, &crawler.FetchError{URL: url, StatusCode: state.page.StatusCode, Err: fmt.Errorf("parse html: %w", err)}
	}
	state.page.Doc = doc
	return state.page, nil
}

func (f *Fetcher) buildCollector(start time.Time, state *fetchState) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)
	f.configureCollectorHooks(collector, start, state)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, start time.Time, state *fetchState) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})

	hooks.OnResponse(func(r *colly.Response) {
		state.status = r.StatusCode
		state.page = &crawler.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			state.status = r.StatusCode
		}
		state.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func statusLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
