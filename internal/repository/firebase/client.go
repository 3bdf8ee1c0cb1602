// Package firebase implements domain.RemoteStore against the Firebase Realtime
// Database REST API, including its server-sent-event streaming endpoint.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/tree"
)

// ErrNotConfigured is returned by every call when no database URL was supplied
var ErrNotConfigured = errors.New("firebase: database URL is not configured")

// Ensure Client implements domain.RemoteStore
var _ domain.RemoteStore = (*Client)(nil)

// Error is a non-success response from the database that is not a permission denial
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("firebase: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("firebase: %s (status %d)", e.Message, e.Status)
}

// Config holds the connection parameters for the database
type Config struct {
	DatabaseURL string
	// AuthToken is sent as the REST "auth" parameter (ID token or database secret)
	AuthToken string
	// HTTPClient is used for one-shot requests; defaults to a client with a 30s timeout
	HTTPClient *http.Client
	// StreamClient is used for subscriptions and must not set a timeout
	StreamClient *http.Client
}

// Client talks to one Realtime Database instance
type Client struct {
	baseURL      string
	authToken    string
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a new Client. An empty DatabaseURL yields a client whose
// calls all fail with ErrNotConfigured.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	streamClient := cfg.StreamClient
	if streamClient == nil {
		streamClient = &http.Client{}
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.DatabaseURL, "/"),
		authToken:    cfg.AuthToken,
		httpClient:   httpClient,
		streamClient: streamClient,
	}
}

// Get reads the value at path once
func (c *Client) Get(ctx context.Context, path string) (domain.Snapshot, error) {
	var value any
	if err := c.do(ctx, http.MethodGet, path, nil, &value); err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Exists: value != nil, Value: value}, nil
}

// Set overwrites the value at path
func (c *Client) Set(ctx context.Context, path string, value any) error {
	return c.do(ctx, http.MethodPut, path, value, nil)
}

// Update merges fields into the value at path
func (c *Client) Update(ctx context.Context, path string, fields map[string]any) error {
	return c.do(ctx, http.MethodPatch, path, fields, nil)
}

// Push appends value under path and returns the generated key
func (c *Client) Push(ctx context.Context, path string, value any) (string, error) {
	var resp struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, path, value, &resp); err != nil {
		return "", err
	}
	if resp.Name == "" {
		return "", fmt.Errorf("firebase: push to %s returned no key", path)
	}
	return resp.Name, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("firebase: encoding %s body: %w", method, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("firebase: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("firebase: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("firebase: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) endpoint(path string) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	segments := tree.Split(path)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	endpoint := c.baseURL + "/" + strings.Join(segments, "/") + ".json"
	if c.authToken != "" {
		endpoint += "?auth=" + url.QueryEscape(c.authToken)
	}
	return endpoint, nil
}

// checkResponse maps error statuses. 401 and 403 are what the database answers
// when security rules reject the request.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if body.Error == "" {
			return domain.ErrPermissionDenied
		}
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, body.Error)
	}
	return &Error{Status: resp.StatusCode, Message: body.Error}
}
