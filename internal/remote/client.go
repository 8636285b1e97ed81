// Package remote is the HTTP client for the admin API.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/homefront-realty/admin-backoffice/internal/mapper"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
)

const (
	// DefaultTimeout bounds a single admin API request.
	DefaultTimeout = 15 * time.Second

	// APIKeyHeader carries the static admin API key.
	APIKeyHeader = "x-admin-api-key"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("admin API error (status %d): %s", e.StatusCode, e.Body)
}

// Client calls the admin API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New creates a client for baseURL authenticating with apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// ListConversations fetches one page of conversations matching f.
func (c *Client) ListConversations(ctx context.Context, f model.SearchFilters, page, limit int) ([]model.Conversation, int, error) {
	body, err := c.get(ctx, "/admin/conversations", query.Params(f, page, limit))
	if err != nil {
		return nil, 0, err
	}

	var resp struct {
		Data  []mapper.Row `json:"data"`
		Total *int         `json:"total"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("unexpected list response (JSON decode failed): %w", err)
	}

	convs := mapper.Conversations(resp.Data)
	total := len(convs)
	if resp.Total != nil {
		total = *resp.Total
	}
	return convs, total, nil
}

// GetConversation fetches one conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	body, err := c.get(ctx, "/admin/conversations/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	conv := mapper.Conversation(mapper.Decode(body))
	return &conv, nil
}

// Analytics fetches the analytics snapshot for [from, to].
func (c *Client) Analytics(ctx context.Context, from, to time.Time) (model.AnalyticsSnapshot, error) {
	params := url.Values{}
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))

	body, err := c.get(ctx, "/admin/analytics", params)
	if err != nil {
		return model.AnalyticsSnapshot{}, err
	}
	s := mapper.AnalyticsSnapshot(mapper.Decode(body))
	if s.From.IsZero() {
		s.From = from
	}
	if s.To.IsZero() {
		s.To = to
	}
	return s, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("admin API URL is not configured")
	}

	reqURL := c.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
