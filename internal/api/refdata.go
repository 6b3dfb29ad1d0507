package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

// RefKind names one of the four reference taxonomies. The value is the
// wire path segment of its collection.
type RefKind string

const (
	IssueTypes RefKind = "issue_types"
	Severities RefKind = "severities"
	Priorities RefKind = "priorities"
	Statuses   RefKind = "statuses"
)

// RefKinds lists every reference taxonomy in display order.
func RefKinds() []RefKind {
	return []RefKind{IssueTypes, Severities, Priorities, Statuses}
}

// Valid reports whether k names a known taxonomy.
func (k RefKind) Valid() bool {
	switch k {
	case IssueTypes, Severities, Priorities, Statuses:
		return true
	}
	return false
}

func (k RefKind) path() string {
	return "/" + string(k)
}

// NoReplacement is passed as replaceWith when deleting the last entity
// of a kind, where the backend does not require reassignment.
const NoReplacement int64 = 0

// RefEntityAPI is the CRUD capability set for one reference taxonomy,
// resolved once from its kind rather than re-derived per call site.
type RefEntityAPI struct {
	c    *Client
	kind RefKind
}

// Ref returns the capability set for one reference taxonomy.
func (c *Client) Ref(kind RefKind) RefEntityAPI {
	return RefEntityAPI{c: c, kind: kind}
}

// List returns every entity of the taxonomy.
func (r RefEntityAPI) List(ctx context.Context) ([]models.RefEntity, error) {
	var entities []models.RefEntity
	if err := r.c.do(ctx, http.MethodGet, r.kind.path(), nil, nil, &entities, nil); err != nil {
		return nil, err
	}
	return entities, nil
}

// Create adds a new entity to the taxonomy.
func (r RefEntityAPI) Create(ctx context.Context, in models.RefEntityInput) (*models.RefEntity, error) {
	var entity models.RefEntity
	if err := r.c.do(ctx, http.MethodPost, r.kind.path(), nil, in, &entity, nil); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Update edits an existing entity.
func (r RefEntityAPI) Update(ctx context.Context, id int64, in models.RefEntityInput) (*models.RefEntity, error) {
	var entity models.RefEntity
	if err := r.c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", r.kind.path(), id), nil, in, &entity, nil); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Delete removes an entity. When replaceWith is a concrete id it is
// sent as issues_go_to_id and the backend reassigns affected issues to
// it; the backend rejects a bare delete while other entities of the
// kind still exist.
func (r RefEntityAPI) Delete(ctx context.Context, id, replaceWith int64) error {
	var qv url.Values
	if replaceWith != NoReplacement {
		qv = url.Values{"issues_go_to_id": []string{strconv.FormatInt(replaceWith, 10)}}
	}
	return r.c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", r.kind.path(), id), qv, nil, nil, nil)
}

// Flat variants of the capability set, used where a single dynamic
// kind is in hand (the collection view model and the CLI).

// ListRefEntities lists the entities of kind.
func (c *Client) ListRefEntities(ctx context.Context, kind RefKind) ([]models.RefEntity, error) {
	return c.Ref(kind).List(ctx)
}

// CreateRefEntity creates an entity of kind.
func (c *Client) CreateRefEntity(ctx context.Context, kind RefKind, in models.RefEntityInput) (*models.RefEntity, error) {
	return c.Ref(kind).Create(ctx, in)
}

// UpdateRefEntity updates an entity of kind.
func (c *Client) UpdateRefEntity(ctx context.Context, kind RefKind, id int64, in models.RefEntityInput) (*models.RefEntity, error) {
	return c.Ref(kind).Update(ctx, id, in)
}

// DeleteRefEntity deletes an entity of kind.
func (c *Client) DeleteRefEntity(ctx context.Context, kind RefKind, id, replaceWith int64) error {
	return c.Ref(kind).Delete(ctx, id, replaceWith)
}
