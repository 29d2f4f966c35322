// Package crawler defines the job record model and the contracts shared by the
// fetchers, sources, stores and the manager.
package crawler

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// MinDescriptionLength is the shortest description a record may carry before
// it is considered incomplete.
const MinDescriptionLength = 50

// ApplicationMethodRedirect sends applicants to the original posting.
const ApplicationMethodRedirect = "redirect"

// WorkMode is where the job is performed.
type WorkMode string

// Work modes derived from location text.
const (
	WorkModeRemote WorkMode = "remote"
	WorkModeHybrid WorkMode = "hybrid"
	WorkModeOnsite WorkMode = "onsite"
)

// Seniority is the experience level derived from title and description.
type Seniority string

// Seniority levels. SeniorityMid is the fallback.
const (
	SeniorityJunior Seniority = "junior"
	SeniorityMid    Seniority = "mid"
	SenioritySenior Seniority = "senior"
	SeniorityLead   Seniority = "lead"
)

// ContractType is the engagement type derived from a listing badge.
type ContractType string

// Contract types. ContractFullTime is the fallback.
const (
	ContractFullTime   ContractType = "fulltime"
	ContractPartTime   ContractType = "parttime"
	ContractInternship ContractType = "internship"
	ContractFreelance  ContractType = "freelance"
)

// Record is a job extracted from a source site.
type Record struct {
	Title             string       `json:"title"`
	Company           string       `json:"company"`
	Description       string       `json:"description"`
	Location          string       `json:"location,omitempty"`
	WorkMode          WorkMode     `json:"work_mode"`
	Seniority         Seniority    `json:"seniority"`
	ContractType      ContractType `json:"contract_type"`
	SalaryText        string       `json:"salary_text,omitempty"`
	CompanyLogoURL    string       `json:"company_logo_url,omitempty"`
	Benefits          []string     `json:"benefits,omitempty"`
	SourcePlatform    string       `json:"source_platform"`
	SourceURL         string       `json:"source_url"`
	ApplicationMethod string       `json:"application_method"`
}

// ApplicationURL is where applicants are redirected.
func (r Record) ApplicationURL() string {
	return r.SourceURL
}

// MissingFields lists the required fields that are empty, in a stable order.
// A description shorter than MinDescriptionLength counts as missing.
func (r Record) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Company) == "" {
		missing = append(missing, "company")
	}
	if len([]rune(strings.TrimSpace(r.Description))) < MinDescriptionLength {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(r.SourceURL) == "" {
		missing = append(missing, "source_url")
	}
	return missing
}

// Complete reports whether every required field is present.
func (r Record) Complete() bool {
	return len(r.MissingFields()) == 0
}

// FilterPolicy decides which complete records are worth keeping.
type FilterPolicy struct {
	RoleKeywords          []string `json:"role_keywords" mapstructure:"role_keywords"`
	ExcludedTitleKeywords []string `json:"excluded_title_keywords" mapstructure:"excluded_title_keywords"`
	LocationKeywords      []string `json:"location_keywords" mapstructure:"location_keywords"`
	// AllowRemote skips the location check entirely for remote records.
	// Config defaults it to true; false turns the bypass off so remote jobs
	// must also match LocationKeywords.
	AllowRemote bool `json:"allow_remote" mapstructure:"allow_remote"`
}

// CategoryTarget is one listing category a source pages through.
type CategoryTarget struct {
	Source string `json:"source" mapstructure:"source"`
	ID     string `json:"id" mapstructure:"id"`
	Label  string `json:"label" mapstructure:"label"`
}

// Page is a fetched and parsed document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Doc        *goquery.Document
}

// RawEntry is one job fragment located on a listing page.
type RawEntry struct {
	PageURL   string
	Index     int
	Selection *goquery.Selection
}

// RunStatistics counts what happened during one source run.
type RunStatistics struct {
	PagesVisited     int `json:"pages_visited"`
	CandidatesFound  int `json:"candidates_found"`
	CandidatesValid  int `json:"candidates_valid"`
	Persisted        int `json:"persisted"`
	Duplicates       int `json:"duplicates"`
	Rejected         int `json:"rejected"`
	Errors           int `json:"errors"`
	CategoriesFailed int `json:"categories_failed"`
}

// Add accumulates other into s.
func (s *RunStatistics) Add(other RunStatistics) {
	s.PagesVisited += other.PagesVisited
	s.CandidatesFound += other.CandidatesFound
	s.CandidatesValid += other.CandidatesValid
	s.Persisted += other.Persisted
	s.Duplicates += other.Duplicates
	s.Rejected += other.Rejected
	s.Errors += other.Errors
	s.CategoriesFailed += other.CategoriesFailed
}

// CategoryReport is the per-category slice of a source run.
type CategoryReport struct {
	Category CategoryTarget `json:"category"`
	Stats    RunStatistics  `json:"stats"`
	Error    string         `json:"error,omitempty"`
}

// SourceReport is what a SourceScraper returns from Run.
type SourceReport struct {
	Source     string           `json:"source"`
	Stats      RunStatistics    `json:"stats"`
	Categories []CategoryReport `json:"categories,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// SourceOutcome records whether a source run completed or was rejected.
type SourceOutcome struct {
	Source string        `json:"source"`
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	Report *SourceReport `json:"report,omitempty"`
}

// Source outcome statuses.
const (
	SourceFulfilled = "fulfilled"
	SourceRejected  = "rejected"
)

// RunSummary aggregates every source outcome of a crawl run.
type RunSummary struct {
	RunID         string          `json:"run_id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	SourcesRun    int             `json:"sources_run"`
	SourcesFailed int             `json:"sources_failed"`
	Totals        RunStatistics   `json:"totals"`
	Sources       []SourceOutcome `json:"sources"`
}
