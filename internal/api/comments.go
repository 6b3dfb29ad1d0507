package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

// ListComments returns the comments on an issue in backend order.
func (c *Client) ListComments(ctx context.Context, issueID int64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/issues/%d/comments", issueID), nil, nil, &comments, nil); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment adds a comment to an issue. The author id travels both
// in the body and in the user identity header.
func (c *Client) CreateComment(ctx context.Context, issueID int64, in models.CommentInput) (*models.Comment, error) {
	headers := http.Header{}
	headers.Set(userIDHeader, strconv.FormatInt(in.UserID, 10))
	var comment models.Comment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/issues/%d/comments", issueID), nil, in, &comment, headers); err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateComment edits an existing comment.
func (c *Client) UpdateComment(ctx context.Context, issueID, commentID int64, in models.CommentInput) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/issues/%d/comments/%d", issueID, commentID), nil, in, &comment, nil); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment from an issue.
func (c *Client) DeleteComment(ctx context.Context, issueID, commentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/issues/%d/comments/%d", issueID, commentID), nil, nil, nil, nil)
}
