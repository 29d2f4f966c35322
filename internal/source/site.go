package source

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/extract"
)

// SiteConfig is shared by the concrete sites.
type SiteConfig struct {
	// BaseURL overrides the board's default listing endpoint.
	BaseURL string
	// Categories overrides the board's default categories.
	Categories []crawler.CategoryTarget
	// SearchLocation narrows searches on boards that accept a location.
	SearchLocation string
	Policy         crawler.FilterPolicy
	// Detail fetches job detail pages. Nil disables detail fetches and the
	// listing excerpt is used as description.
	Detail        crawler.Fetcher
	ExcerptLength int
	Logger        *zap.Logger
}

// Normalize fills defaults.
func (c SiteConfig) Normalize(defaultBase string, defaultCategories []crawler.CategoryTarget) SiteConfig {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBase
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if len(c.Categories) == 0 {
		c.Categories = defaultCategories
	}
	if c.ExcerptLength <= 0 {
		c.ExcerptLength = extract.DefaultExcerptLength
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// DetailDescription fetches url and extracts its description with
// selectors. Any failure falls back to the listing excerpt.
func DetailDescription(ctx context.Context, cfg SiteConfig, url, excerpt string, selectors ...string) (string, *crawler.Page) {
	fallback := extract.Excerpt(excerpt, cfg.ExcerptLength)
	if cfg.Detail == nil || url == "" {
		return fallback, nil
	}
	page, err := cfg.Detail.Fetch(ctx, url)
	if err != nil {
		cfg.Logger.Warn("detail fetch failed, using listing excerpt", zap.String("url", url), zap.Error(err))
		return fallback, nil
	}
	for _, selector := range selectors {
		if text := extract.BlockText(page.Doc.Find(selector).First()); text != "" {
			return text, page
		}
	}
	cfg.Logger.Debug("detail page has no description, using listing excerpt", zap.String("url", url))
	return fallback, page
}

// ListingMissing lists the fields a listing fragment must carry before any
// detail fetch is attempted.
func ListingMissing(rec crawler.Record) []string {
	var missing []string
	if rec.Title == "" {
		missing = append(missing, "title")
	}
	if rec.Company == "" {
		missing = append(missing, "company")
	}
	if rec.SourceURL == "" {
		missing = append(missing, "source_url")
	}
	return missing
}
