package certs

import (
	"slices"
	"strings"
	"time"
)

// AnyValue is the sentinel meaning "no filter" for organization and course.
const AnyValue = "All"

// ProgressQuery selects learner progress rows. Zero values match everything.
type ProgressQuery struct {
	Search            string
	Organization      string
	OrganizationID    string // scoping for SOP users
	Course            string
	CompletionStatus  []CompletionStatus
	CertificateStatus []CertificateStatus
	From              time.Time // LastActivity lower bound, inclusive
	To                time.Time // LastActivity upper bound, inclusive
}

// Matches reports whether p satisfies every criterion of q.
func (q ProgressQuery) Matches(p LearnerProgress) bool {
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		hay := []string{p.LearnerName, p.Email, p.Organization, p.Course}
		if !slices.ContainsFunc(hay, func(s string) bool {
			return strings.Contains(strings.ToLower(s), needle)
		}) {
			return false
		}
	}
	if !matchesAny(q.Organization, p.Organization) || !matchesAny(q.Course, p.Course) {
		return false
	}
	if q.OrganizationID != "" && p.OrganizationID != q.OrganizationID {
		return false
	}
	if len(q.CompletionStatus) > 0 && !slices.Contains(q.CompletionStatus, p.CompletionStatus) {
		return false
	}
	if len(q.CertificateStatus) > 0 && !slices.Contains(q.CertificateStatus, p.CertificateStatus) {
		return false
	}
	if !q.From.IsZero() && p.LastActivity.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && p.LastActivity.After(q.To) {
		return false
	}
	return true
}

func matchesAny(want, got string) bool {
	return want == "" || want == AnyValue || want == got
}
