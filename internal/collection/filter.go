package collection

import (
	"strings"

	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

// Unassigned is the sentinel AssigneeID meaning "only issues with no
// assignee". It is distinct from the zero value, which means the
// assignee filter is not applied at all.
const Unassigned int64 = -1

// FilterCriteria selects a subsequence of the in-memory issue set.
// Every field is optional; a zero value matches all issues. Predicates
// are pure, so evaluation order only affects performance.
type FilterCriteria struct {
	// Text matches case-insensitively as a substring of the subject
	// or the content.
	Text string

	IssueTypeID int64
	SeverityID  int64
	PriorityID  int64
	StatusID    int64
	CreatorID   int64

	// AssigneeID matches the issue's assignee exactly, or selects
	// unassigned issues when set to the Unassigned sentinel.
	AssigneeID int64
}

// IsZero reports whether no filter is applied.
func (f FilterCriteria) IsZero() bool {
	return f == FilterCriteria{}
}

// Matches evaluates every predicate against the issue, short-circuiting
// on the first failure.
func (f FilterCriteria) Matches(issue *models.Issue) bool {
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(issue.Subject), needle) &&
			!strings.Contains(strings.ToLower(issue.Content), needle) {
			return false
		}
	}
	if f.IssueTypeID != 0 && issue.IssueTypeID != f.IssueTypeID {
		return false
	}
	if f.SeverityID != 0 && issue.SeverityID != f.SeverityID {
		return false
	}
	if f.PriorityID != 0 && issue.PriorityID != f.PriorityID {
		return false
	}
	if f.StatusID != 0 && issue.StatusID != f.StatusID {
		return false
	}
	if f.CreatorID != 0 && issue.UserID != f.CreatorID {
		return false
	}
	switch {
	case f.AssigneeID == 0:
		// No assignee filter.
	case f.AssigneeID == Unassigned:
		if issue.AssigneeID != nil {
			return false
		}
	default:
		if issue.AssigneeID == nil || *issue.AssigneeID != f.AssigneeID {
			return false
		}
	}
	return true
}

// apply returns the matching subsequence of issues, preserving order.
func (f FilterCriteria) apply(issues []models.Issue) []models.Issue {
	if f.IsZero() {
		out := make([]models.Issue, len(issues))
		copy(out, issues)
		return out
	}
	out := make([]models.Issue, 0, len(issues))
	for i := range issues {
		if f.Matches(&issues[i]) {
			out = append(out, issues[i])
		}
	}
	return out
}
