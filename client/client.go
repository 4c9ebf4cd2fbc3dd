// Package client provides typed HTTP wrappers over the sosyal REST API. A
// Client carries its own session token; no package-level state is shared
// between instances.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

const maxResponseSize = 8 << 20 // 8 MiB

// APIError is a non-2xx response from the API. It carries the HTTP status and
// the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsAuth reports whether the error means the session token was missing,
// expired or rejected.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Client talks to one API base URL. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for the given base URL, e.g. "https://api.example.com".
// Pass nil to use a default HTTP client with a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SetToken installs the bearer token sent on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken ends the client's session; subsequent requests are anonymous.
func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// envelope mirrors the API's uniform response body.
type envelope struct {
	Status  string                 `json:"status"`
	Data    sonic.NoCopyRawMessage `json:"data"`
	Message string                 `json:"message"`
}

// unwrapData tolerates the legacy envelope where the payload is nested one
// level deeper under a second "data" key.
func unwrapData(raw []byte) []byte {
	var nested struct {
		Data sonic.NoCopyRawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(raw, &nested); err == nil && len(nested.Data) > 0 {
		return nested.Data
	}
	return raw
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	header      http.Header
}

// do executes one API request and decodes the success envelope into out when
// out is non-nil. Non-2xx responses return *APIError; transport failures are
// wrapped and returned as-is.
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", r.method, r.path, err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response %s %s: %w", r.method, r.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFromResponse(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response %s %s: %w", r.method, r.path, err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("decode response %s %s: empty data", r.method, r.path)
	}
	if err := sonic.Unmarshal(unwrapData(env.Data), out); err != nil {
		return fmt.Errorf("decode response %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func apiErrorFromResponse(status int, body []byte) *APIError {
	var env envelope
	if err := sonic.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{StatusCode: status, Message: env.Message}
	}
	return &APIError{StatusCode: status, Message: http.StatusText(status)}
}
