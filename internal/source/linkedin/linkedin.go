// Package linkedin scrapes the public (logged-out) LinkedIn job search.
package linkedin

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobcrawler/internal/classify"
	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/extract"
	"github.com/JakeFAU/jobcrawler/internal/filter"
	"github.com/JakeFAU/jobcrawler/internal/source"
)

// Name is the source platform label stored with every record.
const Name = "linkedin"

// DefaultBaseURL is the guest search fragment endpoint.
const DefaultBaseURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"

// pageSize is the number of cards the guest endpoint returns per page.
const pageSize = 25

// DefaultCategories are keyword searches for design roles.
var DefaultCategories = []crawler.CategoryTarget{
	{Source: Name, ID: "ux designer", Label: "UX Designer"},
	{Source: Name, ID: "product designer", Label: "Product Designer"},
	{Source: Name, ID: "ui designer", Label: "UI Designer"},
}

// Site implements source.Site for LinkedIn.
type Site struct {
	cfg source.SiteConfig
}

// New builds the site with defaults applied.
func New(cfg source.SiteConfig) *Site {
	return &Site{cfg: cfg.Normalize(DefaultBaseURL, DefaultCategories)}
}

// Name returns "linkedin".
func (*Site) Name() string { return Name }

// Categories returns the configured keyword searches.
func (s *Site) Categories() []crawler.CategoryTarget { return s.cfg.Categories }

// PageURL builds the guest search URL. Pages are 1-based.
func (s *Site) PageURL(cat crawler.CategoryTarget, page int) string {
	q := url.Values{}
	q.Set("keywords", cat.ID)
	if s.cfg.SearchLocation != "" {
		q.Set("location", s.cfg.SearchLocation)
	}
	q.Set("start", strconv.Itoa((page-1)*pageSize))
	return s.cfg.BaseURL + "?" + q.Encode()
}

// ListEntries returns one entry per job card.
func (*Site) ListEntries(page *crawler.Page) []crawler.RawEntry {
	var entries []crawler.RawEntry
	page.Doc.Find(".base-search-card, .job-search-card").Each(func(i int, sel *goquery.Selection) {
		entries = append(entries, crawler.RawEntry{PageURL: page.URL, Index: i, Selection: sel})
	})
	return entries
}

// ExtractOne reads the card, applies the keyword pre-filter and then loads
// the detail page for the full description and job criteria.
func (s *Site) ExtractOne(ctx context.Context, entry crawler.RawEntry) crawler.Result {
	card := entry.Selection
	rec := crawler.Record{
		Title:             extract.FirstText(card, ".base-search-card__title", "h3"),
		Company:           extract.FirstText(card, ".base-search-card__subtitle a", ".base-search-card__subtitle", "h4"),
		Location:          extract.FirstText(card, ".job-search-card__location"),
		SourcePlatform:    Name,
		ApplicationMethod: crawler.ApplicationMethodRedirect,
	}
	href := extract.FirstAttr(card, "a.base-card__full-link, a.base-card, a", "href")
	rec.SourceURL = extract.CanonicalJobURL(extract.ResolveURL(entry.PageURL, href))

	if missing := source.ListingMissing(rec); len(missing) > 0 {
		return crawler.Fail(&crawler.ExtractionError{Source: Name, URL: rec.SourceURL, Title: rec.Title, Fields: missing})
	}

	rec.WorkMode = classify.WorkMode(rec.Location)
	if reason := filter.MatchPolicy(rec, s.cfg.Policy); reason != "" {
		return crawler.Skip(reason)
	}

	rec.CompanyLogoURL = extract.PageLogoURL(entry.PageURL,
		extract.FirstAttr(card, "img", "data-delayed-url", "data-ghost-url", "src"),
		extract.FirstAttr(card, "img", "srcset", "data-srcset"),
	)

	desc, detail := source.DetailDescription(ctx, s.cfg, rec.SourceURL, extract.CleanText(card.Text()),
		".show-more-less-html__markup", ".description__text")
	rec.Description = desc

	criteria := map[string]string{}
	if detail != nil {
		criteria = jobCriteria(detail.Doc)
	}
	classify.Apply(&rec, criteria["employment type"])
	if level := criteria["seniority level"]; level != "" && rec.Seniority == crawler.SeniorityMid {
		rec.Seniority = classify.Seniority(level, "")
	}
	return crawler.OK(rec)
}

// jobCriteria maps lowercase criteria headers to their values.
func jobCriteria(doc *goquery.Document) map[string]string {
	out := map[string]string{}
	doc.Find(".description__job-criteria-item").Each(func(_ int, item *goquery.Selection) {
		key := extract.CleanText(item.Find(".description__job-criteria-subheader").Text())
		val := extract.CleanText(item.Find(".description__job-criteria-text").Text())
		if key != "" && val != "" {
			out[strings.ToLower(key)] = val
		}
	})
	return out
}
