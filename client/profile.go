package client

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"

	"sosyal-api/domain"
)

// Client satisfies domain.ProfileService, so an edit session can drive the
// remote API directly.
var _ domain.ProfileService = (*Client)(nil)

type photosPayload struct {
	PhotoURLs []string `json:"photoUrls"`
}

// FetchProfile loads a profile. An empty username means the authenticated
// user's own profile; otherwise the public detail endpoint is used and a
// leading @ is accepted.
func (c *Client) FetchProfile(ctx context.Context, username string) (domain.Profile, error) {
	path := "/api/users/profile"
	if username != "" {
		path = "/api/users/profile/details/" + url.PathEscape(username)
	}

	var profile domain.Profile
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// UpdateProfile sends one partial update for the authenticated user. Only
// non-nil fields change on the server.
func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.Profile, error) {
	body, err := sonic.Marshal(update)
	if err != nil {
		return domain.Profile{}, err
	}

	var profile domain.Profile
	err = c.do(ctx, request{
		method:      http.MethodPatch,
		path:        "/api/users/profile/detail",
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, &profile)
	if err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// UploadPhotos sends the staged photos as one multipart request and returns
// the stored URLs in upload order.
func (c *Client) UploadPhotos(ctx context.Context, photos []domain.PhotoUpload) ([]string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, photo := range photos {
		fw, err := w.CreateFormFile("photos", photo.Name)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(photo.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var resp photosPayload
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/users/profile/photos",
		body:        &buf,
		contentType: w.FormDataContentType(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.PhotoURLs, nil
}

// DeletePhotos removes previously stored photos and returns the URLs the
// server confirmed deleted.
func (c *Client) DeletePhotos(ctx context.Context, urls []string) ([]string, error) {
	body, err := sonic.Marshal(photosPayload{PhotoURLs: urls})
	if err != nil {
		return nil, err
	}

	var resp photosPayload
	err = c.do(ctx, request{
		method:      http.MethodDelete,
		path:        "/api/users/profile/photos",
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.PhotoURLs, nil
}
