// Package pricingapi is the client of the pricing service REST surface.
//
// Every call returns the service envelope. Transport failures and bodies
// that are not an envelope are folded into a failed envelope so callers only
// ever check Success.
package pricingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"genstudio/internal/config"
	"genstudio/internal/logging"
	"genstudio/internal/models"
)

// ListResult is the envelope of a list call.
type ListResult = models.ListResponse

// Result is the envelope of a write call.
type Result = models.Response

// Query filters GET /pricing. Empty fields are omitted.
type Query struct {
	Engine   string
	ModelKey string
	Version  string
	Tool     models.Tool
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Engine != "" {
		v.Set("engine", q.Engine)
	}
	if q.ModelKey != "" {
		v.Set("modelKey", q.ModelKey)
	}
	if q.Version != "" {
		v.Set("version", q.Version)
	}
	if q.Tool != "" {
		v.Set("tool", string(q.Tool))
	}
	return v
}

// ResponseError is returned by Check when an envelope reports failure.
type ResponseError struct {
	Op      string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// Check turns a write envelope into an error.
func Check(op string, r Result) error {
	if r.Success {
		return nil
	}
	return &ResponseError{Op: op, Message: r.Message}
}

// Client talks to the pricing service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewLogger("pricingapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from the session configuration.
func NewClientFromConfig(cfg *config.SessionConfig) *Client {
	return NewClient(cfg.PricingAPIURL,
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		WithToken(cfg.PricingAPIToken),
	)
}

// SetToken replaces the bearer token for subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// HasToken reports whether a bearer token is configured.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// List fetches the pricing models matching q.
func (c *Client) List(ctx context.Context, q Query) ListResult {
	path := "/pricing"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}

	var out ListResult
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		c.logger.Warn("list pricing failed", "error", err)
		return ListResult{Success: false, Data: []*models.PricingModel{}, Message: networkFailure(err)}
	}
	if out.Data == nil {
		out.Data = []*models.PricingModel{}
	}
	return out
}

// Create adds a pricing model.
func (c *Client) Create(ctx context.Context, input *models.PricingModelInput) Result {
	return c.write(ctx, "create pricing", http.MethodPost, "/pricing", input)
}

// Update replaces a pricing model.
func (c *Client) Update(ctx context.Context, id string, input *models.PricingModelInput) Result {
	return c.write(ctx, "update pricing", http.MethodPut, "/pricing/"+url.PathEscape(id), input)
}

// UpdateCell writes a single matrix cell.
func (c *Client) UpdateCell(ctx context.Context, id string, cell models.CellUpdate) Result {
	return c.write(ctx, "update cell", http.MethodPatch, "/pricing/"+url.PathEscape(id)+"/cell", cell)
}

// Delete removes a pricing model.
func (c *Client) Delete(ctx context.Context, id string) Result {
	return c.write(ctx, "delete pricing", http.MethodDelete, "/pricing/"+url.PathEscape(id), nil)
}

func (c *Client) write(ctx context.Context, op, method, path string, body any) Result {
	var out Result
	if err := c.do(ctx, method, path, body, &out); err != nil {
		c.logger.Warn(op+" failed", "path", path, "error", err)
		return Result{Success: false, Message: networkFailure(err)}
	}
	return out
}

func networkFailure(err error) string {
	return "Network request failed: " + err.Error()
}

// statusError marks a non-2xx response whose body is not an envelope.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.code, http.StatusText(e.code))
}

// do performs the request and decodes the envelope into out. An envelope is
// accepted whatever the status code.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := decodeEnvelope(data, out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &statusError{code: resp.StatusCode}
		}
		return err
	}
	return nil
}

// decodeEnvelope accepts only a JSON object carrying a "success" field.
func decodeEnvelope(data []byte, out any) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	if _, ok := probe["success"]; !ok {
		return fmt.Errorf("invalid response body: missing success field")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return nil
}
