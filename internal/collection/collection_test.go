package collection

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrianferrergutierrez/frontend-asw/internal/api"
	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

// fakeGateway is an in-memory backend. Writes mutate its state so a
// subsequent refresh observes the post-mutation snapshot, which is
// exactly the contract the collection relies on.
type fakeGateway struct {
	mu sync.Mutex

	issues     []models.Issue
	refData    map[api.RefKind][]models.RefEntity
	users      []models.UserDetail
	nextID     int64
	listCalls  []api.SortOption
	failUsers  error
	failWrites error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		refData: map[api.RefKind][]models.RefEntity{
			api.IssueTypes: {{ID: 1, Name: "Bug"}},
			api.Severities: {{ID: 1, Name: "Normal"}},
			api.Priorities: {{ID: 1, Name: "Medium"}},
			api.Statuses:   {{ID: 2, Name: "New"}, {ID: 3, Name: "Closed", IsClosed: true}},
		},
		users:  []models.UserDetail{{User: models.User{ID: 42, Email: "dev@example.com"}}},
		nextID: 100,
	}
}

func (g *fakeGateway) ListIssues(ctx context.Context, sort api.SortOption) ([]models.Issue, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls = append(g.listCalls, sort)
	out := make([]models.Issue, len(g.issues))
	copy(out, g.issues)
	return out, nil
}

func (g *fakeGateway) ListRefEntities(ctx context.Context, kind api.RefKind) ([]models.RefEntity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.RefEntity, len(g.refData[kind]))
	copy(out, g.refData[kind])
	return out, nil
}

func (g *fakeGateway) ListUsers(ctx context.Context) ([]models.UserDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failUsers != nil {
		return nil, g.failUsers
	}
	out := make([]models.UserDetail, len(g.users))
	copy(out, g.users)
	return out, nil
}

func (g *fakeGateway) CreateIssue(ctx context.Context, in models.IssueInput) (*models.Issue, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrites != nil {
		return nil, g.failWrites
	}
	g.nextID++
	issue := models.Issue{
		ID:          g.nextID,
		Subject:     in.Subject,
		Content:     in.Content,
		UserID:      in.UserID,
		IssueTypeID: in.IssueTypeID,
		SeverityID:  in.SeverityID,
		PriorityID:  in.PriorityID,
		StatusID:    in.StatusID,
		WatcherIDs:  in.WatcherIDs,
	}
	if in.AssigneeID != 0 {
		assignee := in.AssigneeID
		issue.AssigneeID = &assignee
	}
	g.issues = append(g.issues, issue)
	return &issue, nil
}

func (g *fakeGateway) UpdateIssue(ctx context.Context, id int64, in models.IssueInput) (*models.Issue, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrites != nil {
		return nil, g.failWrites
	}
	for i := range g.issues {
		if g.issues[i].ID == id {
			if in.Subject != "" {
				g.issues[i].Subject = in.Subject
			}
			if in.StatusID != 0 {
				g.issues[i].StatusID = in.StatusID
			}
			return &g.issues[i], nil
		}
	}
	return nil, fmt.Errorf("issue %d not found", id)
}

func (g *fakeGateway) DeleteIssue(ctx context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrites != nil {
		return g.failWrites
	}
	for i := range g.issues {
		if g.issues[i].ID == id {
			g.issues = append(g.issues[:i], g.issues[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("issue %d not found", id)
}

func (g *fakeGateway) CreateIssuesBulk(ctx context.Context, subjects []string) ([]int64, error) {
	g.mu.Lock()
	if g.failWrites != nil {
		g.mu.Unlock()
		return nil, g.failWrites
	}
	g.mu.Unlock()
	var ids []int64
	for _, subject := range subjects {
		issue, err := g.CreateIssue(ctx, models.IssueInput{Subject: subject})
		if err != nil {
			return nil, err
		}
		ids = append(ids, issue.ID)
	}
	return ids, nil
}

func (g *fakeGateway) CreateComment(ctx context.Context, issueID int64, in models.CommentInput) (*models.Comment, error) {
	if g.failWrites != nil {
		return nil, g.failWrites
	}
	return &models.Comment{ID: 1, Content: in.Content}, nil
}

func (g *fakeGateway) UpdateComment(ctx context.Context, issueID, commentID int64, in models.CommentInput) (*models.Comment, error) {
	return &models.Comment{ID: commentID, Content: in.Content}, nil
}

func (g *fakeGateway) DeleteComment(ctx context.Context, issueID, commentID int64) error {
	return g.failWrites
}

func (g *fakeGateway) UploadAttachment(ctx context.Context, issueID int64, filename, contentType string, r io.Reader) (*models.Attachment, error) {
	if g.failWrites != nil {
		return nil, g.failWrites
	}
	return &models.Attachment{ID: 1, Filename: filename, ContentType: contentType}, nil
}

func (g *fakeGateway) DeleteAttachment(ctx context.Context, issueID, attachmentID int64) error {
	return g.failWrites
}

func (g *fakeGateway) CreateRefEntity(ctx context.Context, kind api.RefKind, in models.RefEntityInput) (*models.RefEntity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrites != nil {
		return nil, g.failWrites
	}
	g.nextID++
	entity := models.RefEntity{ID: g.nextID, Name: in.Name, Color: in.Color, Position: in.Position}
	if in.IsClosed != nil {
		entity.IsClosed = *in.IsClosed
	}
	g.refData[kind] = append(g.refData[kind], entity)
	return &entity, nil
}

func (g *fakeGateway) UpdateRefEntity(ctx context.Context, kind api.RefKind, id int64, in models.RefEntityInput) (*models.RefEntity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.refData[kind] {
		if g.refData[kind][i].ID == id {
			g.refData[kind][i].Name = in.Name
			return &g.refData[kind][i], nil
		}
	}
	return nil, fmt.Errorf("%s %d not found", kind, id)
}

// DeleteRefEntity mimics the backend's reassignment semantics: issues
// pointing at the deleted entity move to replaceWith.
func (g *fakeGateway) DeleteRefEntity(ctx context.Context, kind api.RefKind, id, replaceWith int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrites != nil {
		return g.failWrites
	}
	entities := g.refData[kind]
	for i := range entities {
		if entities[i].ID == id {
			g.refData[kind] = append(entities[:i], entities[i+1:]...)
			break
		}
	}
	for i := range g.issues {
		switch kind {
		case api.IssueTypes:
			if g.issues[i].IssueTypeID == id {
				g.issues[i].IssueTypeID = replaceWith
			}
		case api.Severities:
			if g.issues[i].SeverityID == id {
				g.issues[i].SeverityID = replaceWith
			}
		case api.Priorities:
			if g.issues[i].PriorityID == id {
				g.issues[i].PriorityID = replaceWith
			}
		case api.Statuses:
			if g.issues[i].StatusID == id {
				g.issues[i].StatusID = replaceWith
			}
		}
	}
	return nil
}

func (g *fakeGateway) listCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.listCalls)
}

func (g *fakeGateway) seedIssues(issues ...models.Issue) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issues = append(g.issues, issues...)
}

func TestRefreshPopulatesEverything(t *testing.T) {
	gw := newFakeGateway()
	gw.seedIssues(models.Issue{ID: 1, Subject: "Bug login", StatusID: 2})
	c := New(gw, nil)

	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, c.Issues(), 1)
	rd := c.RefData()
	assert.Len(t, rd.Types, 1)
	assert.Len(t, rd.Statuses, 2)
	assert.Len(t, rd.Users, 1)
	assert.False(t, c.Loading())
	assert.NoError(t, c.LastError())
}

func TestRefreshIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	gw.seedIssues(
		models.Issue{ID: 1, Subject: "Bug login", StatusID: 2},
		models.Issue{ID: 2, Subject: "Add feature", StatusID: 3},
	)
	c := New(gw, nil)

	require.NoError(t, c.Refresh(context.Background()))
	first := c.Visible()
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, first, c.Visible())
}

func TestRefreshIsAllOrNothing(t *testing.T) {
	gw := newFakeGateway()
	gw.seedIssues(models.Issue{ID: 1, Subject: "Bug login", StatusID: 2})
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	// Mutate backend state and make one sub-request fail: nothing may
	// be replaced, not even the collections that fetched fine.
	gw.seedIssues(models.Issue{ID: 2, Subject: "Add feature", StatusID: 3})
	gw.mu.Lock()
	gw.failUsers = fmt.Errorf("users endpoint down")
	gw.mu.Unlock()

	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Error(t, c.LastError())
	require.Len(t, c.Issues(), 1, "stale data must stay in place, never partially overwritten")

	// Once the failing sub-request recovers the next refresh commits
	// and clears the recorded error.
	gw.mu.Lock()
	gw.failUsers = nil
	gw.mu.Unlock()
	require.NoError(t, c.Refresh(context.Background()))
	assert.Len(t, c.Issues(), 2)
	assert.NoError(t, c.LastError())
}

func TestSetSortAlwaysHitsTheServer(t *testing.T) {
	gw := newFakeGateway()
	gw.seedIssues(
		models.Issue{ID: 2, Subject: "B", StatusID: 2},
		models.Issue{ID: 1, Subject: "A", StatusID: 2},
	)
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	before := gw.listCallCount()
	require.NoError(t, c.SetSort(context.Background(), api.SortByPriority, api.Ascending))
	require.Equal(t, before+1, gw.listCallCount(), "changing sort must issue a new listing request")

	gw.mu.Lock()
	last := gw.listCalls[len(gw.listCalls)-1]
	gw.mu.Unlock()
	assert.Equal(t, api.SortByPriority, last.Field)
	assert.Equal(t, api.Ascending, last.Direction)

	// The collection keeps the order the server delivered; it never
	// re-sorts locally.
	issues := c.Issues()
	require.Len(t, issues, 2)
	assert.Equal(t, int64(2), issues[0].ID)
	assert.Equal(t, int64(1), issues[1].ID)
}

func TestSetSortRejectsUnknownField(t *testing.T) {
	c := New(newFakeGateway(), nil)
	err := c.SetSort(context.Background(), "subject", api.Ascending)
	require.Error(t, err)
}

func TestMutateAndRefreshOnDelete(t *testing.T) {
	gw := newFakeGateway()
	gw.seedIssues(
		models.Issue{ID: 1, Subject: "Bug login", StatusID: 2},
		models.Issue{ID: 2, Subject: "Add feature", StatusID: 3},
	)
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.DeleteIssue(context.Background(), 1))
	for _, issue := range c.Issues() {
		assert.NotEqual(t, int64(1), issue.ID, "deleted issue must be gone after the automatic refresh")
	}
	assert.Len(t, c.Issues(), 1)
}

func TestMutateAndRefreshOnCreate(t *testing.T) {
	gw := newFakeGateway()
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	created, err := c.CreateIssue(context.Background(), models.IssueInput{Subject: "New bug"})
	require.NoError(t, err)

	var found bool
	for _, issue := range c.Issues() {
		if issue.ID == created.ID {
			found = true
		}
	}
	assert.True(t, found, "created issue must be visible after the automatic refresh")
}

func TestFailedMutationSkipsRefresh(t *testing.T) {
	gw := newFakeGateway()
	gw.seedIssues(models.Issue{ID: 1, Subject: "Bug login", StatusID: 2})
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	before := c.Issues()
	calls := gw.listCallCount()
	gw.mu.Lock()
	gw.failWrites = fmt.Errorf("validation failed")
	gw.mu.Unlock()

	_, err := c.CreateIssue(context.Background(), models.IssueInput{})
	require.Error(t, err)
	assert.Equal(t, before, c.Issues(), "a failed mutation must leave the stale list untouched")
	assert.Equal(t, calls, gw.listCallCount(), "no refresh may run after a failed mutation")
}

func TestBulkCreateRefreshes(t *testing.T) {
	gw := newFakeGateway()
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	ids, err := c.CreateIssuesBulk(context.Background(), []string{"Bug en login", "Implementar feature", "Revisar rendimiento"})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Len(t, c.Issues(), 3)
}

func TestUpdateCommentRefreshes(t *testing.T) {
	gw := newFakeGateway()
	gw.seedIssues(models.Issue{ID: 1, Subject: "Bug login", StatusID: 2})
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	calls := gw.listCallCount()
	comment, err := c.UpdateComment(context.Background(), 1, 5, models.CommentInput{Content: "corregido"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), comment.ID)
	assert.Equal(t, "corregido", comment.Content)
	assert.Equal(t, calls+1, gw.listCallCount(), "editing a comment must trigger a refresh")
}

func TestDeleteRefEntityRequiresReplacement(t *testing.T) {
	gw := newFakeGateway()
	gw.seedIssues(models.Issue{ID: 1, Subject: "Bug login", StatusID: 3})
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	// Statuses #2 and #3 both exist: a bare delete must be rejected
	// client-side before any request goes out.
	err := c.DeleteRefEntity(context.Background(), api.Statuses, 3, api.NoReplacement)
	require.Error(t, err)
	assert.Len(t, c.RefData().Statuses, 2)

	// With a replacement the delete goes through and, after the
	// refresh, affected issues report the replacement status.
	require.NoError(t, c.DeleteRefEntity(context.Background(), api.Statuses, 3, 2))
	require.Len(t, c.RefData().Statuses, 1)
	issues := c.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, int64(2), issues[0].StatusID)
}

func TestDeleteLastRefEntityNeedsNoReplacement(t *testing.T) {
	gw := newFakeGateway()
	gw.mu.Lock()
	gw.refData[api.Priorities] = []models.RefEntity{{ID: 1, Name: "Medium"}}
	gw.mu.Unlock()
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.DeleteRefEntity(context.Background(), api.Priorities, 1, api.NoReplacement))
	assert.Empty(t, c.RefData().Priorities)
}

func TestProfileProjections(t *testing.T) {
	assignee := int64(42)
	gw := newFakeGateway()
	gw.seedIssues(
		models.Issue{ID: 1, Subject: "Mine", UserID: 42, StatusID: 2},
		models.Issue{ID: 2, Subject: "Assigned to me", UserID: 7, AssigneeID: &assignee, StatusID: 2},
		models.Issue{ID: 3, Subject: "Watched", UserID: 7, WatcherIDs: []int64{9, 42}, StatusID: 2},
		models.Issue{ID: 4, Subject: "Unrelated", UserID: 7, StatusID: 2},
	)
	c := New(gw, nil)
	require.NoError(t, c.Refresh(context.Background()))

	require.Len(t, c.CreatedBy(42), 1)
	assert.Equal(t, int64(1), c.CreatedBy(42)[0].ID)
	require.Len(t, c.AssignedTo(42), 1)
	assert.Equal(t, int64(2), c.AssignedTo(42)[0].ID)
	require.Len(t, c.WatchedBy(42), 1)
	assert.Equal(t, int64(3), c.WatchedBy(42)[0].ID)
}
