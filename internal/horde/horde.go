// Package horde is a client for the AIHorde crowd-sourced image
// generation API (https://aihorde.net/api/v2).
package horde

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Well-known AIHorde endpoints and values.
const (
	DefaultBaseURL = "https://aihorde.net/api/v2"
	RegisterURL    = "https://aihorde.net/register"
	HelpURL        = "https://aihorde.net/faq"

	// AnonymousKey is the API key for unregistered users. Anonymous
	// requests are served last in the queue.
	AnonymousKey = "0000000000"
)

// sizeStep is the pixel granularity workers accept for width and height.
const sizeStep = 64

// Config represents the configuration for the AIHorde API client.
type Config struct {
	APIKey      string
	ClientAgent string
	BaseURL     string
	HTTPClient  *http.Client

	// Polling cadence for Await. Zero values fall back to the
	// defaults (5s base, 15s cap).
	CheckInterval    time.Duration
	MaxCheckInterval time.Duration
}

// DefaultConfig returns the default configuration for the AIHorde API
// client. An empty apiKey falls back to [AnonymousKey].
func DefaultConfig(apiKey, clientAgent string) Config {
	if apiKey == "" {
		apiKey = AnonymousKey
	}
	return Config{
		APIKey:      apiKey,
		ClientAgent: clientAgent,
		BaseURL:     DefaultBaseURL,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Client is a client for the AIHorde API.
type Client struct {
	config Config
}

// New creates a new [Client] with the given [Config].
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 5 * time.Second
	}
	if config.MaxCheckInterval <= 0 {
		config.MaxCheckInterval = 15 * time.Second
	}
	return &Client{config: config}
}

// Anonymous reports whether the client runs without a registered API key.
func (c *Client) Anonymous() bool {
	return c.config.APIKey == "" || c.config.APIKey == AnonymousKey
}

// GenerateAsync submits a generation job and returns its ID. Width and
// height are snapped down to the nearest multiple of 64 first, since
// workers reject sizes off the grid.
func (c *Client) GenerateAsync(ctx context.Context, input GenerationInput) (*RequestAsync, error) {
	input.Params.Width = snapSize(input.Params.Width)
	input.Params.Height = snapSize(input.Params.Height)

	var resp RequestAsync
	if err := c.do(ctx, http.MethodPost, "/generate/async", input, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Check polls the lightweight status of a queued job. It does not count
// against the API's result rate limits.
func (c *Client) Check(ctx context.Context, id string) (*Check, error) {
	var resp Check
	if err := c.do(ctx, http.MethodGet, "/generate/check/"+url.PathEscape(id), nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches the full status of a job, including any finished
// generations.
func (c *Client) Status(ctx context.Context, id string) (*Status, error) {
	var resp Status
	if err := c.do(ctx, http.MethodGet, "/generate/status/"+url.PathEscape(id), nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel aborts a queued or running job. Finished generations, if any,
// are returned.
func (c *Client) Cancel(ctx context.Context, id string) (*Status, error) {
	var resp Status
	if err := c.do(ctx, http.MethodDelete, "/generate/status/"+url.PathEscape(id), nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FindUser returns the account details for the configured API key.
func (c *Client) FindUser(ctx context.Context) (*UserDetails, error) {
	var resp UserDetails
	if err := c.do(ctx, http.MethodGet, "/find_user", nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns the monthly usage count per known model.
func (c *Client) Stats(ctx context.Context) (*ModelStats, error) {
	header := http.Header{}
	// Only the month bucket is needed; X-Fields trims the payload.
	header.Set("X-Fields", "month")

	var resp ModelStats
	if err := c.do(ctx, http.MethodGet, "/stats/img/models?model_state=known", nil, &resp, header); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, header http.Header) error {
	var bodyReader io.Reader
	if body != nil {
		bts, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("horde: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bts)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("horde: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Client-Agent", c.config.ClientAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("horde: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("horde: decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	bts, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiErr
	}
	if err := json.Unmarshal(bts, apiErr); err != nil {
		// Not the documented error shape, keep whatever the server said.
		apiErr.Message = string(bytes.TrimSpace(bts))
	}
	return apiErr
}

func snapSize(v int) int {
	if v%sizeStep == 0 {
		return v
	}
	return v / sizeStep * sizeStep
}
