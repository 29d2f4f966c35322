// Package filter applies the required-field check and the keyword policy to
// extracted job records.
package filter

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

// Rejection reasons returned by Check.
const (
	ReasonIncomplete    = "incomplete"
	ReasonRoleMismatch  = "role_mismatch"
	ReasonExcludedTitle = "excluded_title"
	ReasonLocation      = "location_mismatch"
)

// Validate reports whether rec is complete and accepted by policy.
func Validate(rec crawler.Record, policy crawler.FilterPolicy) bool {
	return Check(rec, policy) == ""
}

// Check returns the first failing stage, or "" when rec is accepted.
// Stages short-circuit in order: required fields, title keywords, location.
func Check(rec crawler.Record, policy crawler.FilterPolicy) string {
	if !rec.Complete() {
		return ReasonIncomplete
	}
	return MatchPolicy(rec, policy)
}

// MatchPolicy runs only the keyword stages. It is used on partially extracted
// listing fragments, before a detail page has been fetched.
func MatchPolicy(rec crawler.Record, policy crawler.FilterPolicy) string {
	if len(policy.RoleKeywords) > 0 && !containsAnyFold(rec.Title, policy.RoleKeywords) {
		return ReasonRoleMismatch
	}
	if containsAnyFold(rec.Title, policy.ExcludedTitleKeywords) {
		return ReasonExcludedTitle
	}
	if !locationAccepted(rec, policy) {
		return ReasonLocation
	}
	return ""
}

// Describe renders a reason with the record's title for logs.
func Describe(reason string, rec crawler.Record) string {
	return fmt.Sprintf("%s: %q", reason, rec.Title)
}

func locationAccepted(rec crawler.Record, policy crawler.FilterPolicy) bool {
	if rec.WorkMode == crawler.WorkModeRemote && policy.AllowRemote {
		return true
	}
	location := strings.TrimSpace(rec.Location)
	if location == "" || len(policy.LocationKeywords) == 0 {
		return true
	}
	return containsAnyFold(location, policy.LocationKeywords)
}

func containsAnyFold(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
