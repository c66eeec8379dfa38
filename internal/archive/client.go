// ABOUTME: HTTP client for the upstream wiki/archive card API.
// ABOUTME: Bearer-token auth with a refresh-capable token source and typed errors.

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client errors
var (
	// ErrNotFound indicates the requested card does not exist upstream.
	ErrNotFound = errors.New("card not found")

	// ErrUnauthorized indicates the bearer token was rejected upstream.
	ErrUnauthorized = errors.New("archive authorization failed")
)

// DefaultTimeout bounds each upstream call.
const DefaultTimeout = 30 * time.Second

// APIError is an upstream failure that is neither not-found nor auth.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("archive API error (status %d): %s", e.Status, e.Message)
}

// TokenSource supplies the bearer token for upstream calls. Implementations
// may refresh expired tokens; Token must be safe for concurrent use.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

func (t StaticToken) Token(_ context.Context) (string, error) {
	return string(t), nil
}

// Card is one wiki/archive card.
type Card struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"` // markdown body
	Type      string   `json:"type,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// CardDraft is the payload for creating a card.
type CardDraft struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Type    string   `json:"type,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// CardPatch is a partial update; nil fields are left unchanged.
type CardPatch struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// SearchResult is the upstream search response.
type SearchResult struct {
	Cards []Card `json:"cards"`
	Total int    `json:"total"`
}

// Config holds configuration for the archive client.
type Config struct {
	BaseURL string
	Tokens  TokenSource
	Timeout time.Duration // defaults to DefaultTimeout
	// HTTPClient overrides the default pooled client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the upstream archive API. A single Client shares one
// pooled http.Client and is safe for concurrent use by all tool handlers.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// NewClient creates an archive client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token source is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: cfg.BaseURL,
		tokens:  cfg.Tokens,
		client:  httpClient,
	}, nil
}

// GetCard fetches a single card by id.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	var card Card
	if err := c.do(ctx, http.MethodGet, "/cards/"+url.PathEscape(id), nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// SearchCards runs a full-text search. limit <= 0 uses the upstream default.
func (c *Client) SearchCards(ctx context.Context, query string, limit int) (*SearchResult, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result SearchResult
	if err := c.do(ctx, http.MethodGet, "/cards/search?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateCard creates a new card and returns it with its assigned id.
func (c *Client) CreateCard(ctx context.Context, draft *CardDraft) (*Card, error) {
	var card Card
	if err := c.do(ctx, http.MethodPost, "/cards", draft, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard applies a partial update and returns the updated card.
func (c *Client) UpdateCard(ctx context.Context, id string, patch *CardPatch) (*Card, error) {
	var card Card
	if err := c.do(ctx, http.MethodPatch, "/cards/"+url.PathEscape(id), patch, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// AddTag attaches a tag to a card and returns the updated card.
func (c *Client) AddTag(ctx context.Context, id, tag string) (*Card, error) {
	body := map[string]string{"tag": tag}
	var card Card
	if err := c.do(ctx, http.MethodPost, "/cards/"+url.PathEscape(id)+"/tags", body, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// HealthStatus is the upstream health payload.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health checks upstream reachability.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// errorBody is the upstream error response shape.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do performs one authenticated request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("archive: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("archive: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("archive: fetch token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("archive: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("archive: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		var eb errorBody
		msg := "request failed"
		if err := json.Unmarshal(respBody, &eb); err == nil {
			if eb.Message != "" {
				msg = eb.Message
			} else if eb.Error != "" {
				msg = eb.Error
			}
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("archive: decode response: %w", err)
	}
	return nil
}
