package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGeneratorTimeout = 30 * time.Second

// HTTPGenerator posts each descriptor as JSON to the generation backend.
// Any 2xx response means the backend accepted the job.
type HTTPGenerator struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPGenerator creates a generator for the given endpoint. A zero
// timeout uses the default.
func NewHTTPGenerator(url, token string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = defaultGeneratorTimeout
	}
	return &HTTPGenerator{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Generate sends one descriptor.
func (g *HTTPGenerator) Generate(ctx context.Context, d Descriptor) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", d.ID)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("generator error (status %d): %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
