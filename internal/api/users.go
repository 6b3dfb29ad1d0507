package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

// avatarField is the multipart form field for profile picture uploads.
const avatarField = "avatar"

// ListUsers returns every user with their detail projection.
func (c *Client) ListUsers(ctx context.Context) ([]models.UserDetail, error) {
	var users []models.UserDetail
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &users, nil); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns a single user's detail projection.
func (c *Client) GetUser(ctx context.Context, id int64) (*models.UserDetail, error) {
	var user models.UserDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, nil, &user, nil); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserBio replaces a user's bio. A user-scoped write, so the
// identity header carries the same id.
func (c *Client) UpdateUserBio(ctx context.Context, id int64, bio string) (*models.UserDetail, error) {
	headers := http.Header{}
	headers.Set(userIDHeader, strconv.FormatInt(id, 10))
	body := map[string]string{"bio": bio}
	var user models.UserDetail
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/bio_edit", id), nil, body, &user, headers); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserAvatar uploads a new profile picture for the user. Uses
// the upload timeout budget like attachment transfers.
func (c *Client) UpdateUserAvatar(ctx context.Context, id int64, filename, contentType string, r io.Reader) (*models.UserDetail, error) {
	headers := http.Header{}
	headers.Set(userIDHeader, strconv.FormatInt(id, 10))
	var user models.UserDetail
	path := fmt.Sprintf("/users/%d/profile_pic_edit", id)
	if err := c.doMultipart(ctx, http.MethodPut, path, avatarField, filename, contentType, r, &user, headers); err != nil {
		return nil, err
	}
	return &user, nil
}
