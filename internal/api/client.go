package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

const (
	// apiKeyHeader carries the static API key on every request.
	apiKeyHeader = "X-API-Key"
	// userIDHeader identifies the acting user on user-scoped writes.
	userIDHeader = "X-User-ID"

	defaultUploadTimeout = 30 * time.Second
)

// Client is a typed client for the tracker REST API. Every domain
// operation maps onto exactly one HTTP request with the API key
// attached; no retries are performed, a failed call surfaces
// immediately to the caller.
type Client struct {
	httpClient *http.Client
	// uploadClient carries the longer timeout budget for multipart
	// attachment and avatar transfers.
	uploadClient *http.Client
	baseURL      string
	apiKey       string
	logf         func(format string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. with an
// httptest client in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.uploadClient = hc
	}
}

// WithUploadTimeout sets the timeout budget for binary uploads.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.uploadClient = &http.Client{Timeout: d}
	}
}

// WithLogger replaces the request/response logger. Pass a no-op
// function to silence the client.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Client) {
		c.logf = logf
	}
}

// NewClient creates a client for the API rooted at baseURL,
// authenticating every request with apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{},
		uploadClient: &http.Client{Timeout: defaultUploadTimeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		logf:         log.Printf,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newRequest builds a request with the base URL, query string and the
// API key header attached.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s %s: %w", method, path, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send executes the request, logs it, normalizes failures into the
// error taxonomy and decodes a 2xx body into out when out is non-nil.
func (c *Client) send(hc *http.Client, req *http.Request, out any) error {
	start := time.Now()
	c.logf("api: -> %s %s", req.Method, req.URL.Path)

	resp, err := hc.Do(req)
	if err != nil {
		c.logf("api: <- %s %s failed: %v", req.Method, req.URL.Path, err)
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logf("api: <- %s %s %d (%s)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return errorFromResponse(resp.StatusCode, body, req.Method != http.MethodGet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// do is the JSON round-trip helper every non-multipart operation goes
// through. extraHeaders may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, extraHeaders http.Header) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
		body = buf
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	for key, values := range extraHeaders {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	return c.send(c.httpClient, req, out)
}

// doMultipart uploads r as a multipart form file under fieldName. The
// upload client's timeout budget applies instead of the default.
func (c *Client) doMultipart(ctx context.Context, method, path, fieldName, filename, contentType string, r io.Reader, out any, extraHeaders http.Header) error {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read upload payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, nil, buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	for key, values := range extraHeaders {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	return c.send(c.uploadClient, req, out)
}
