// Package domestika scrapes the Domestika creative job board.
package domestika

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobcrawler/internal/classify"
	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/extract"
	"github.com/JakeFAU/jobcrawler/internal/filter"
	"github.com/JakeFAU/jobcrawler/internal/source"
)

// Name is the source platform label stored with every record.
const Name = "domestika"

// DefaultBaseURL is the job board root.
const DefaultBaseURL = "https://www.domestika.org/es/jobs"

// DefaultCategories are the board's design areas.
var DefaultCategories = []crawler.CategoryTarget{
	{Source: Name, ID: "diseno-ux-ui", Label: "Diseño UX/UI"},
	{Source: Name, ID: "diseno-web", Label: "Diseño Web"},
	{Source: Name, ID: "diseno-grafico", Label: "Diseño Gráfico"},
}

// Site implements source.Site for Domestika.
type Site struct {
	cfg source.SiteConfig
}

// New builds the site with defaults applied.
func New(cfg source.SiteConfig) *Site {
	return &Site{cfg: cfg.Normalize(DefaultBaseURL, DefaultCategories)}
}

// Name returns "domestika".
func (*Site) Name() string { return Name }

// Categories returns the configured areas.
func (s *Site) Categories() []crawler.CategoryTarget { return s.cfg.Categories }

// PageURL builds the area listing URL. Pages are 1-based.
func (s *Site) PageURL(cat crawler.CategoryTarget, page int) string {
	return fmt.Sprintf("%s/area/%s?page=%d", s.cfg.BaseURL, url.PathEscape(cat.ID), page)
}

// ListEntries returns one entry per job item.
func (*Site) ListEntries(page *crawler.Page) []crawler.RawEntry {
	var entries []crawler.RawEntry
	page.Doc.Find(".job-item").Each(func(i int, sel *goquery.Selection) {
		entries = append(entries, crawler.RawEntry{PageURL: page.URL, Index: i, Selection: sel})
	})
	return entries
}

// ExtractOne reads the listing item, pre-filters it and enriches it from the
// detail page (description, benefits and salary).
func (s *Site) ExtractOne(ctx context.Context, entry crawler.RawEntry) crawler.Result {
	item := entry.Selection
	rec := crawler.Record{
		Title:             extract.FirstText(item, ".job-item__title a", ".job-item__title"),
		Company:           extract.FirstText(item, ".job-item__company a", ".job-item__company"),
		Location:          extract.FirstText(item, ".job-item__location"),
		SalaryText:        extract.FirstText(item, ".job-item__salary"),
		SourcePlatform:    Name,
		ApplicationMethod: crawler.ApplicationMethodRedirect,
	}
	href := extract.FirstAttr(item, ".job-item__title a, a.job-item__link", "href")
	rec.SourceURL = extract.CanonicalJobURL(extract.ResolveURL(entry.PageURL, href))

	if missing := source.ListingMissing(rec); len(missing) > 0 {
		return crawler.Fail(&crawler.ExtractionError{Source: Name, URL: rec.SourceURL, Title: rec.Title, Fields: missing})
	}

	rec.WorkMode = classify.WorkMode(rec.Location)
	if reason := filter.MatchPolicy(rec, s.cfg.Policy); reason != "" {
		return crawler.Skip(reason)
	}

	rec.CompanyLogoURL = extract.PageLogoURL(entry.PageURL,
		extract.FirstAttr(item, "img.job-item__logo, .job-item__logo img, img", "src", "data-src"),
		extract.FirstAttr(item, "img.job-item__logo, .job-item__logo img, img", "srcset", "data-srcset"),
	)
	badge := extract.FirstText(item, ".job-item__badge", ".badge")

	excerpt := extract.FirstText(item, ".job-item__excerpt", ".job-item__description")
	if excerpt == "" {
		excerpt = extract.CleanText(item.Text())
	}
	desc, detail := source.DetailDescription(ctx, s.cfg, rec.SourceURL, excerpt, ".job-description", ".job__description", "article")
	rec.Description = desc
	rec.Benefits = extract.TextList(item, ".job-item__benefits li")

	if detail != nil {
		body := detail.Doc.Selection
		if benefits := extract.TextList(body, ".job-benefits li"); len(benefits) > 0 {
			rec.Benefits = benefits
		}
		if rec.SalaryText == "" {
			rec.SalaryText = extract.FirstText(body, ".job-salary")
		}
		if badge == "" {
			badge = extract.FirstText(body, ".job-contract", ".job-badge")
		}
	}

	classify.Apply(&rec, badge)
	return crawler.OK(rec)
}
