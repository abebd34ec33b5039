package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// Request is a research query sent to the backend.
type Request struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources,omitempty"`
	Focus   string   `json:"focus,omitempty"`
}

// Response is the backend's answer envelope.
type Response struct {
	Success    bool                   `json:"success"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Insights   []string               `json:"insights,omitempty"`
	Confidence float64                `json:"confidence"`
	Error      string                 `json:"error,omitempty"`
}

// Client talks to the research backend over HTTP. Outbound requests are
// rate limited so a burst of cache misses cannot hammer the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the outbound request rate.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func NewClient(baseURL string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search sends one research query. Error classification: connection
// refused and 5xx mean the backend is unavailable, 4xx is a permanent
// request problem, everything else is transient and safe to retry.
func (c *Client) Search(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.Query == "" {
		return nil, port.FatalError(fmt.Errorf("research query cannot be empty"))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, port.FatalError(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/research", bytes.NewReader(body))
	if err != nil {
		return nil, port.FatalError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: backend returned %d", port.ErrBackendUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, port.TransientError(fmt.Errorf("backend throttled the request"))
	case resp.StatusCode >= 400:
		return nil, port.FatalError(fmt.Errorf("backend rejected the request with %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, port.TransientError(fmt.Errorf("read response: %w", err))
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, port.TransientError(fmt.Errorf("decode response: %w", err))
	}
	if !out.Success {
		c.logger.Warn("Research backend reported failure", "error", out.Error)
		return nil, port.TransientError(fmt.Errorf("research failed: %s", out.Error))
	}
	return &out, nil
}

// Health checks the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health endpoint returned %d", port.ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}
