package domain

import (
	"strings"
	"time"
)

// IssueFilter narrows an already-fetched list of issues. Zero fields match everything.
type IssueFilter struct {
	Search    string      // case-insensitive substring of the title
	Status    IssueStatus // exact status
	CreatedOn time.Time   // same calendar day as CreatedAt (UTC)
	UpdatedOn time.Time   // same calendar day as UpdatedAt (UTC)
}

// Matches reports whether issue passes every non-zero criterion.
func (f IssueFilter) Matches(issue *Issue) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(issue.Title), strings.ToLower(f.Search)) {
		return false
	}
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if !f.CreatedOn.IsZero() && !sameDay(issue.CreatedAt, f.CreatedOn) {
		return false
	}
	if !f.UpdatedOn.IsZero() && !sameDay(issue.UpdatedAt, f.UpdatedOn) {
		return false
	}
	return true
}

// Apply returns the issues that match f, preserving order.
func (f IssueFilter) Apply(issues []*Issue) []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, issue := range issues {
		if f.Matches(issue) {
			out = append(out, issue)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
