package models

import (
	"time"
)

// User is the minimal user projection embedded in issues and comments.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// UserStats holds the aggregate counters returned with a user detail.
type UserStats struct {
	IssuesCount         int `json:"issues_count"`
	AssignedIssuesCount int `json:"assigned_issues_count"`
	WatchedIssuesCount  int `json:"watched_issues_count"`
	CommentsCount       int `json:"comments_count"`
}

// UserDetail is the full user projection returned by the users endpoints.
type UserDetail struct {
	User
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Stats     UserStats `json:"stats"`
}

// RefEntity is one entry of a reference taxonomy attached to issues:
// an issue type, severity, priority or status. IsClosed is only
// meaningful for statuses; the backend omits it elsewhere.
type RefEntity struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Position int    `json:"position,omitempty"`
	IsClosed bool   `json:"is_closed,omitempty"`
}

// RefEntityInput is the attribute bag for creating or updating a
// reference entity. Position is client-supplied on create.
type RefEntityInput struct {
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Position int    `json:"position,omitempty"`
	IsClosed *bool  `json:"is_closed,omitempty"`
}

// Issue is a tracked ticket. The embedded IssueType/Severity/Priority/
// Status/User objects are snapshots taken by the backend at fetch time;
// they are only trusted immediately after a refresh.
type Issue struct {
	ID          int64      `json:"id"`
	Subject     string     `json:"subject"`
	Content     string     `json:"content"`
	UserID      int64      `json:"user_id"`
	IssueTypeID int64      `json:"issue_type_id"`
	SeverityID  int64      `json:"severity_id"`
	PriorityID  int64      `json:"priority_id"`
	StatusID    int64      `json:"status_id"`
	AssigneeID  *int64     `json:"assignee_id"`
	Deadline    *time.Time `json:"deadline"`
	WatcherIDs  []int64    `json:"watcher_ids"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	IssueType RefEntity `json:"issue_type"`
	Severity  RefEntity `json:"severity"`
	Priority  RefEntity `json:"priority"`
	Status    RefEntity `json:"status"`
	User      User      `json:"user"`

	Comments []Comment `json:"comments,omitempty"`
}

// IssueInput is the attribute bag accepted by the issue create and
// update endpoints. Zero-valued fields are omitted from the request.
type IssueInput struct {
	Subject     string     `json:"subject"`
	Content     string     `json:"content,omitempty"`
	IssueTypeID int64      `json:"issue_type_id,omitempty"`
	SeverityID  int64      `json:"severity_id,omitempty"`
	PriorityID  int64      `json:"priority_id,omitempty"`
	StatusID    int64      `json:"status_id,omitempty"`
	AssigneeID  int64      `json:"assignee_id,omitempty"`
	UserID      int64      `json:"user_id,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	WatcherIDs  []int64    `json:"watcher_ids,omitempty"`
}

// Comment belongs to one issue.
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `json:"user"`
}

// CommentInput is the body for creating or updating a comment. UserID
// identifies the author and is also sent as the identity header.
type CommentInput struct {
	Content string `json:"content"`
	UserID  int64  `json:"user_id,omitempty"`
}

// Attachment is a file attached to an issue. URL is the direct
// download location, RedirectURL the backend's redirecting variant.
type Attachment struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url_directa"`
	RedirectURL string    `json:"url_redireccion"`
}
