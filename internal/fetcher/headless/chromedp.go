// Package headless renders JavaScript-driven listing pages with headless
// Chrome before handing the DOM to the extractors.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/metrics"
)

const defaultNavigationTimeout = 10 * time.Second

// Waiter paces requests per host.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel       int
	UserAgent         string
	AcceptLanguage    string
	NavigationTimeout time.Duration
	// WaitSelector is awaited before the DOM is captured. Defaults to "body".
	WaitSelector string
	// Settle is an extra pause after WaitSelector for late client rendering.
	Settle time.Duration
}

// Fetcher implements crawler.Fetcher using chromedp.
type Fetcher struct {
	cfg         Config
	slots       chan struct{}
	limiter     Waiter
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a headless fetcher backed by chromedp. The browser is
// started lazily on the first Fetch.
func NewChromedp(cfg Config, limiter Waiter, logger *zap.Logger) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = "body"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var slots chan struct{}
	if cfg.MaxParallel > 0 {
		slots = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		slots:       slots,
		limiter:     limiter,
		logger:      logger.Named("headless"),
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch navigates to url and returns the rendered DOM.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*crawler.Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return nil, &crawler.FetchError{URL: url, Err: err}
		}
	}
	if err := f.acquire(ctx); err != nil {
		return nil, &crawler.FetchError{URL: url, Err: err}
	}
	defer f.release()

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, f.navTimeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	status := &documentStatus{}
	chromedp.ListenTarget(taskCtx, status.captureEvent)

	start := time.Now()
	html, finalURL, err := f.render(taskCtx, url)
	if err != nil {
		metrics.ObservePage(url, "error", 0)
		return nil, &crawler.FetchError{URL: url, Err: err}
	}
	code := status.code()
	metrics.ObservePage(url, fmt.Sprint(code), len(html))
	if code >= http.StatusBadRequest {
		return nil, &crawler.FetchError{URL: url, StatusCode: code, Err: fmt.Errorf("unexpected status %d", code)}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &crawler.FetchError{URL: url, StatusCode: code, Err: fmt.Errorf("parse html: %w", err)}
	}
	if finalURL == "" {
		finalURL = url
	}
	f.logger.Debug("rendered page", zap.String("url", finalURL), zap.Int("status", code), zap.Duration("took", time.Since(start)))
	return &crawler.Page{
		URL:        finalURL,
		StatusCode: code,
		Body:       []byte(html),
		Duration:   time.Since(start),
		Doc:        doc,
	}, nil
}

func (f *Fetcher) render(ctx context.Context, url string) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		f.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady(f.cfg.WaitSelector, chromedp.ByQuery),
	}
	if f.cfg.Settle > 0 {
		actions = append(actions, chromedp.Sleep(f.cfg.Settle))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (f *Fetcher) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if headers := f.extraHeaders(); len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

func (f *Fetcher) extraHeaders() network.Headers {
	headers := network.Headers{}
	if f.cfg.AcceptLanguage != "" {
		headers["Accept-Language"] = f.cfg.AcceptLanguage
	}
	return headers
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.slots == nil {
		return nil
	}
	select {
	case f.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.slots == nil {
		return
	}
	select {
	case <-f.slots:
	default:
	}
}

func (f *Fetcher) navTimeout() time.Duration {
	if f.cfg.NavigationTimeout > 0 {
		return f.cfg.NavigationTimeout
	}
	return defaultNavigationTimeout
}

// documentStatus records the status of the main document response.
type documentStatus struct {
	mu     sync.Mutex
	status int
}

func (d *documentStatus) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status == 0 {
		d.status = int(resp.Response.Status)
	}
}

func (d *documentStatus) code() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status == 0 {
		return http.StatusOK
	}
	return d.status
}
