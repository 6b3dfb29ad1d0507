// Package collection owns the in-memory issue set and its auxiliary
// reference data. Sorting is delegated to the backend, filtering is
// evaluated locally, and every successful mutation triggers a full
// reload so the visible list never drifts from server state.
package collection

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/adrianferrergutierrez/frontend-asw/internal/api"
	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
	"github.com/adrianferrergutierrez/frontend-asw/internal/session"
)

// Gateway is the slice of the remote API the collection drives. It is
// satisfied by *api.Client; tests substitute a fake.
type Gateway interface {
	ListIssues(ctx context.Context, sort api.SortOption) ([]models.Issue, error)
	ListRefEntities(ctx context.Context, kind api.RefKind) ([]models.RefEntity, error)
	ListUsers(ctx context.Context) ([]models.UserDetail, error)

	CreateIssue(ctx context.Context, in models.IssueInput) (*models.Issue, error)
	UpdateIssue(ctx context.Context, id int64, in models.IssueInput) (*models.Issue, error)
	DeleteIssue(ctx context.Context, id int64) error
	CreateIssuesBulk(ctx context.Context, subjects []string) ([]int64, error)

	CreateComment(ctx context.Context, issueID int64, in models.CommentInput) (*models.Comment, error)
	UpdateComment(ctx context.Context, issueID, commentID int64, in models.CommentInput) (*models.Comment, error)
	DeleteComment(ctx context.Context, issueID, commentID int64) error

	UploadAttachment(ctx context.Context, issueID int64, filename, contentType string, r io.Reader) (*models.Attachment, error)
	DeleteAttachment(ctx context.Context, issueID, attachmentID int64) error

	CreateRefEntity(ctx context.Context, kind api.RefKind, in models.RefEntityInput) (*models.RefEntity, error)
	UpdateRefEntity(ctx context.Context, kind api.RefKind, id int64, in models.RefEntityInput) (*models.RefEntity, error)
	DeleteRefEntity(ctx context.Context, kind api.RefKind, id, replaceWith int64) error
}

var _ Gateway = (*api.Client)(nil)

// ReferenceData is the auxiliary collections fetched alongside issues.
// All five are replaced together with the issue set, so filters never
// run against a mixed snapshot.
type ReferenceData struct {
	Types      []models.RefEntity
	Severities []models.RefEntity
	Priorities []models.RefEntity
	Statuses   []models.RefEntity
	Users      []models.UserDetail
}

func (rd ReferenceData) kind(k api.RefKind) []models.RefEntity {
	switch k {
	case api.IssueTypes:
		return rd.Types
	case api.Severities:
		return rd.Severities
	case api.Priorities:
		return rd.Priorities
	case api.Statuses:
		return rd.Statuses
	}
	return nil
}

// Collection is the issue collection view model.
type Collection struct {
	gw      Gateway
	session session.Store

	mu sync.Mutex
	// generation identifies the newest Refresh; an in-flight refresh
	// started under an older generation discards its result instead of
	// clobbering newer state.
	generation uint64
	issues     []models.Issue
	refData    ReferenceData
	sort       api.SortOption
	filter     FilterCriteria
	loading    bool
	lastErr    error
}

// New creates a collection backed by gw. The session store holds the
// selected user; it may be nil for consumers that do not track one.
func New(gw Gateway, sess session.Store) *Collection {
	return &Collection{
		gw:      gw,
		session: sess,
		sort:    api.DefaultSort(),
	}
}

// Refresh reloads issues, every reference collection and the user list
// concurrently and commits them as one atomic replacement. On any
// sub-request failure nothing is replaced: the previous data stays
// visible and LastError reports the failure.
func (c *Collection) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.generation++
	gen := c.generation
	sort := c.sort
	c.mu.Unlock()

	var (
		issues  []models.Issue
		refData ReferenceData
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		issues, err = c.gw.ListIssues(egCtx, sort)
		return err
	})
	for _, fetch := range []struct {
		kind api.RefKind
		dst  *[]models.RefEntity
	}{
		{api.IssueTypes, &refData.Types},
		{api.Severities, &refData.Severities},
		{api.Priorities, &refData.Priorities},
		{api.Statuses, &refData.Statuses},
	} {
		fetch := fetch
		eg.Go(func() error {
			var err error
			*fetch.dst, err = c.gw.ListRefEntities(egCtx, fetch.kind)
			return err
		})
	}
	eg.Go(func() error {
		var err error
		refData.Users, err = c.gw.ListUsers(egCtx)
		return err
	})
	err := eg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A newer refresh superseded this one; its result wins.
		return nil
	}
	c.loading = false
	if err != nil {
		c.lastErr = err
		return fmt.Errorf("refresh failed: %w", err)
	}
	c.issues = issues
	c.refData = refData
	c.lastErr = nil
	return nil
}

// SetSort stores the new server-side ordering and refreshes. The
// in-memory slice is never re-sorted locally; the backend owns
// tie-break and secondary-key behavior.
func (c *Collection) SetSort(ctx context.Context, field api.SortField, direction api.SortDirection) error {
	if !field.Valid() {
		return fmt.Errorf("unknown sort field %q", field)
	}
	c.mu.Lock()
	c.sort = api.SortOption{Field: field, Direction: direction}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Sort returns the current server-side ordering.
func (c *Collection) Sort() api.SortOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

// SetFilter replaces the filter criteria. Filtering is local; no
// request is issued.
func (c *Collection) SetFilter(f FilterCriteria) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

// Visible returns the filtered subsequence of the current issue set,
// in the order the backend delivered it.
func (c *Collection) Visible() []models.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.apply(c.issues)
}

// Issues returns a copy of the unfiltered issue set.
func (c *Collection) Issues() []models.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Issue, len(c.issues))
	copy(out, c.issues)
	return out
}

// RefData returns the current reference data snapshot.
func (c *Collection) RefData() ReferenceData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refData
}

// Loading reports whether a refresh is in flight.
func (c *Collection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastError returns the failure recorded by the most recent refresh,
// or nil after a successful one.
func (c *Collection) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// MutateAndRefresh runs a mutation and, only when it succeeds,
// reloads the collection before returning. On failure the stale list
// stays visible and the error propagates to the caller for display.
func (c *Collection) MutateAndRefresh(ctx context.Context, mutate func(ctx context.Context) error) error {
	if err := mutate(ctx); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// CreateIssue creates an issue and reloads.
func (c *Collection) CreateIssue(ctx context.Context, in models.IssueInput) (*models.Issue, error) {
	var created *models.Issue
	err := c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.gw.CreateIssue(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateIssue updates an issue and reloads.
func (c *Collection) UpdateIssue(ctx context.Context, id int64, in models.IssueInput) (*models.Issue, error) {
	var updated *models.Issue
	err := c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		var err error
		updated, err = c.gw.UpdateIssue(ctx, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteIssue deletes an issue and reloads.
func (c *Collection) DeleteIssue(ctx context.Context, id int64) error {
	return c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		return c.gw.DeleteIssue(ctx, id)
	})
}

// CreateIssuesBulk creates one issue per subject and reloads.
func (c *Collection) CreateIssuesBulk(ctx context.Context, subjects []string) ([]int64, error) {
	var ids []int64
	err := c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		var err error
		ids, err = c.gw.CreateIssuesBulk(ctx, subjects)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AddComment posts a comment and reloads.
func (c *Collection) AddComment(ctx context.Context, issueID int64, in models.CommentInput) (*models.Comment, error) {
	var comment *models.Comment
	err := c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		var err error
		comment, err = c.gw.CreateComment(ctx, issueID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment edits a comment and reloads.
func (c *Collection) UpdateComment(ctx context.Context, issueID, commentID int64, in models.CommentInput) (*models.Comment, error) {
	var comment *models.Comment
	err := c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		var err error
		comment, err = c.gw.UpdateComment(ctx, issueID, commentID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment and reloads.
func (c *Collection) DeleteComment(ctx context.Context, issueID, commentID int64) error {
	return c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		return c.gw.DeleteComment(ctx, issueID, commentID)
	})
}

// AddAttachment uploads an attachment and reloads.
func (c *Collection) AddAttachment(ctx context.Context, issueID int64, filename, contentType string, r io.Reader) (*models.Attachment, error) {
	var attachment *models.Attachment
	err := c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		var err error
		attachment, err = c.gw.UploadAttachment(ctx, issueID, filename, contentType, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// DeleteAttachment removes an attachment and reloads.
func (c *Collection) DeleteAttachment(ctx context.Context, issueID, attachmentID int64) error {
	return c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		return c.gw.DeleteAttachment(ctx, issueID, attachmentID)
	})
}

// CreateRefEntity adds a reference entity and reloads.
func (c *Collection) CreateRefEntity(ctx context.Context, kind api.RefKind, in models.RefEntityInput) (*models.RefEntity, error) {
	var entity *models.RefEntity
	err := c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		var err error
		entity, err = c.gw.CreateRefEntity(ctx, kind, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// UpdateRefEntity edits a reference entity and reloads.
func (c *Collection) UpdateRefEntity(ctx context.Context, kind api.RefKind, id int64, in models.RefEntityInput) (*models.RefEntity, error) {
	var entity *models.RefEntity
	err := c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		var err error
		entity, err = c.gw.UpdateRefEntity(ctx, kind, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// DeleteRefEntity deletes a reference entity and reloads. Issues
// pointing at the deleted entity are reassigned server-side to
// replaceWith; the call is rejected up front when no replacement is
// given while other entities of the kind still exist.
func (c *Collection) DeleteRefEntity(ctx context.Context, kind api.RefKind, id, replaceWith int64) error {
	c.mu.Lock()
	others := 0
	for _, entity := range c.refData.kind(kind) {
		if entity.ID != id {
			others++
		}
	}
	c.mu.Unlock()

	if replaceWith == api.NoReplacement && others > 0 {
		return fmt.Errorf("deleting %s %d requires a replacement id: %d other entries exist", kind, id, others)
	}
	return c.MutateAndRefresh(ctx, func(ctx context.Context) error {
		return c.gw.DeleteRefEntity(ctx, kind, id, replaceWith)
	})
}

// CreatedBy returns the issues created by the user, from the current
// snapshot.
func (c *Collection) CreatedBy(userID int64) []models.Issue {
	return c.project(func(issue *models.Issue) bool {
		return issue.UserID == userID
	})
}

// AssignedTo returns the issues assigned to the user.
func (c *Collection) AssignedTo(userID int64) []models.Issue {
	return c.project(func(issue *models.Issue) bool {
		return issue.AssigneeID != nil && *issue.AssigneeID == userID
	})
}

// WatchedBy returns the issues the user watches.
func (c *Collection) WatchedBy(userID int64) []models.Issue {
	return c.project(func(issue *models.Issue) bool {
		for _, id := range issue.WatcherIDs {
			if id == userID {
				return true
			}
		}
		return false
	})
}

func (c *Collection) project(keep func(*models.Issue) bool) []models.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Issue
	for i := range c.issues {
		if keep(&c.issues[i]) {
			out = append(out, c.issues[i])
		}
	}
	return out
}

// CurrentUser returns the selected user from the session store.
func (c *Collection) CurrentUser() (*models.UserDetail, error) {
	if c.session == nil {
		return nil, nil
	}
	return c.session.Load()
}

// SelectUser records the selected user in the session store.
func (c *Collection) SelectUser(user *models.UserDetail) error {
	if c.session == nil {
		return fmt.Errorf("no session store configured")
	}
	return c.session.Save(user)
}

// ClearUser forgets the selected user.
func (c *Collection) ClearUser() error {
	if c.session == nil {
		return nil
	}
	return c.session.Clear()
}
