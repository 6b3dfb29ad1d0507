package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

// attachmentField is the multipart form field the backend expects
// uploads under.
const attachmentField = "attachment"

// ListAttachments returns the attachments of an issue.
func (c *Client) ListAttachments(ctx context.Context, issueID int64) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/issues/%d/attachments", issueID), nil, nil, &attachments, nil); err != nil {
		return nil, err
	}
	return attachments, nil
}

// UploadAttachment streams r as a new attachment on an issue. The
// upload timeout budget applies; everything else about the call is a
// normal gateway request.
func (c *Client) UploadAttachment(ctx context.Context, issueID int64, filename, contentType string, r io.Reader) (*models.Attachment, error) {
	var attachment models.Attachment
	path := fmt.Sprintf("/issues/%d/attachments", issueID)
	if err := c.doMultipart(ctx, http.MethodPost, path, attachmentField, filename, contentType, r, &attachment, nil); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// DeleteAttachment removes an attachment from an issue.
func (c *Client) DeleteAttachment(ctx context.Context, issueID, attachmentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/issues/%d/attachments/%d", issueID, attachmentID), nil, nil, nil, nil)
}
