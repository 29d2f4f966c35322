// Package classify derives categorical job attributes from free text using
// ordered keyword heuristics. All functions are pure.
package classify

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

var (
	remoteTerms = []string{"remote", "remoto", "teletrabajo", "anywhere", "worldwide", "work from home"}
	hybridTerms = []string{"hybrid", "híbrido", "hibrido", "semipresencial"}

	seniorTerms = []string{"senior", "sénior", "sr.", "sr "}
	juniorTerms = []string{"junior", "jr.", "jr ", "trainee", "entry level", "entry-level"}

	// Whole words only so "leadership" in a description does not promote a
	// plain role to lead.
	leadPattern = regexp.MustCompile(`\b(lead|manager|head of|director|principal)\b`)

	partTimeTerms   = []string{"part-time", "part time", "parttime", "media jornada", "tiempo parcial"}
	internshipTerms = []string{"internship", "prácticas", "practicas", "becario", "beca"}
	freelanceTerms  = []string{"freelance", "freelancer", "contractor", "autónomo", "autonomo"}

	// "intern" must stand alone; it is a prefix of "international".
	internPattern = regexp.MustCompile(`\binterns?\b`)
)

// WorkMode checks remote terms first, then hybrid, and defaults to onsite.
func WorkMode(location string) crawler.WorkMode {
	text := strings.ToLower(location)
	switch {
	case containsAny(text, remoteTerms):
		return crawler.WorkModeRemote
	case containsAny(text, hybridTerms):
		return crawler.WorkModeHybrid
	default:
		return crawler.WorkModeOnsite
	}
}

// Seniority checks senior, then junior, then lead/manager and defaults to mid.
// A title mentioning both senior and junior resolves to senior.
func Seniority(title, description string) crawler.Seniority {
	text := strings.ToLower(title + " " + description)
	switch {
	case containsAny(text, seniorTerms):
		return crawler.SenioritySenior
	case containsAny(text, juniorTerms):
		return crawler.SeniorityJunior
	case leadPattern.MatchString(text):
		return crawler.SeniorityLead
	default:
		return crawler.SeniorityMid
	}
}

// ContractType reads a short badge string and defaults to full time.
func ContractType(badge string) crawler.ContractType {
	text := strings.ToLower(badge)
	switch {
	case text == "":
		return crawler.ContractFullTime
	case containsAny(text, partTimeTerms):
		return crawler.ContractPartTime
	case containsAny(text, internshipTerms) || internPattern.MatchString(text):
		return crawler.ContractInternship
	case containsAny(text, freelanceTerms):
		return crawler.ContractFreelance
	default:
		return crawler.ContractFullTime
	}
}

// Apply fills the derived fields of rec from its text fields.
func Apply(rec *crawler.Record, badge string) {
	rec.WorkMode = WorkMode(rec.Location)
	rec.Seniority = Seniority(rec.Title, rec.Description)
	rec.ContractType = ContractType(badge)
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
