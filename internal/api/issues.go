package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"

	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

// SortField is one of the orderings the backend knows how to apply.
// Sorting is always a server responsibility; the enum values are the
// wire names of the order_by parameter.
type SortField string

const (
	SortByType     SortField = "type"
	SortBySeverity SortField = "severity"
	SortByPriority SortField = "priority"
	SortByIssue    SortField = "issue"
	SortByStatus   SortField = "status"
	SortByModified SortField = "modified"
	SortByAssignee SortField = "assign_to"
)

// Valid reports whether f is a sort field the backend accepts.
func (f SortField) Valid() bool {
	switch f {
	case SortByType, SortBySeverity, SortByPriority, SortByIssue, SortByStatus, SortByModified, SortByAssignee:
		return true
	}
	return false
}

// SortDirection is the order_direction parameter.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortOption is the server-side ordering applied to an issue listing.
type SortOption struct {
	Field     SortField     `url:"order_by,omitempty"`
	Direction SortDirection `url:"order_direction,omitempty"`
}

// DefaultSort matches the listing the backend produces for a fresh
// client: most recently modified first.
func DefaultSort() SortOption {
	return SortOption{Field: SortByModified, Direction: Descending}
}

// ListIssues returns all issues ordered server-side per sort.
func (c *Client) ListIssues(ctx context.Context, sort SortOption) ([]models.Issue, error) {
	qv, err := query.Values(sort)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sort params: %w", err)
	}
	var issues []models.Issue
	if err := c.do(ctx, http.MethodGet, "/issues", qv, nil, &issues, nil); err != nil {
		return nil, err
	}
	return issues, nil
}

// GetIssue returns a single issue by id.
func (c *Client) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	var issue models.Issue
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/issues/%d", id), nil, nil, &issue, nil); err != nil {
		return nil, err
	}
	return &issue, nil
}

// issueEnvelope wraps the attribute bag under an "issue" key when
// watcher ids are present; the backend only accepts watchers nested
// that way. All other payloads go flat.
func issueEnvelope(in models.IssueInput) any {
	if in.WatcherIDs != nil {
		return map[string]models.IssueInput{"issue": in}
	}
	return in
}

// CreateIssue creates an issue and returns the created record.
func (c *Client) CreateIssue(ctx context.Context, in models.IssueInput) (*models.Issue, error) {
	var issue models.Issue
	if err := c.do(ctx, http.MethodPost, "/issues", nil, issueEnvelope(in), &issue, nil); err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateIssue updates an issue and returns the updated record.
func (c *Client) UpdateIssue(ctx context.Context, id int64, in models.IssueInput) (*models.Issue, error) {
	var issue models.Issue
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/issues/%d", id), nil, issueEnvelope(in), &issue, nil); err != nil {
		return nil, err
	}
	return &issue, nil
}

// DeleteIssue deletes an issue. Returns a NotFoundError when the issue
// is already gone.
func (c *Client) DeleteIssue(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/issues/%d", id), nil, nil, nil, nil)
}

// CreateIssuesBulk creates one issue per subject in a single request
// and returns the created ids. The bulk endpoint authenticates with a
// token Authorization header instead of the API key header alone.
func (c *Client) CreateIssuesBulk(ctx context.Context, subjects []string) ([]int64, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Token token="+c.apiKey)
	var ids []int64
	if err := c.do(ctx, http.MethodPost, "/issues/bulk", nil, subjects, &ids, headers); err != nil {
		return nil, err
	}
	return ids, nil
}
