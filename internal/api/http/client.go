package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mattn/go-runewidth"
)

// Client wraps resty.Client with timeout handling and optional transport retries
type Client struct {
	resty      *resty.Client
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientConfig holds configuration for the HTTP client
type ClientConfig struct {
	Timeout time.Duration
	// MaxRetries retries 5xx/429 and network errors at the transport level.
	// Zero disables retries; the watch pipeline relies on that default.
	MaxRetries int
	UserAgent  string
	Debug      bool
	Logger     *slog.Logger
}

// DefaultClientConfig returns the defaults used by the API client
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:   30 * time.Second,
		UserAgent: "watchline/1.0",
	}
}

// StatusError is returned for responses with a 4xx/5xx status
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d for %s", e.StatusCode, e.URL)
}

// NewClient creates a new HTTP client with the given configuration
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.UserAgent == "" {
		config.UserAgent = "watchline/1.0"
	}

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json, */*").
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	if config.MaxRetries > 0 {
		restyClient.AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500 || r.StatusCode() == 429
		})
	}

	client := &Client{
		resty:      restyClient,
		maxRetries: config.MaxRetries,
		timeout:    config.Timeout,
		logger:     config.Logger,
	}

	if config.Debug && config.Logger != nil {
		restyClient.OnBeforeRequest(func(c *resty.Client, r *resty.Request) error {
			client.logRequest(r)
			return nil
		})
		restyClient.OnAfterResponse(func(c *resty.Client, r *resty.Response) error {
			client.logResponse(r)
			return nil
		})
	}

	return client
}

// Get performs a GET request. Query parameters are encoded by resty.
func (c *Client) Get(ctx context.Context, url string, query map[string]string) (*resty.Response, error) {
	req := c.resty.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET request failed for %s: %w", url, err)
	}

	if resp.StatusCode() >= 400 {
		return resp, &StatusError{URL: url, StatusCode: resp.StatusCode(), Body: resp.Body()}
	}

	return resp, nil
}

// GetTimeout returns the configured timeout
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// GetMaxRetries returns the configured max retries
func (c *Client) GetMaxRetries() int {
	return c.maxRetries
}

func (c *Client) logRequest(r *resty.Request) {
	c.logger.Debug("HTTP Request",
		"method", r.Method,
		"url", r.URL,
		"query", r.QueryParam.Encode(),
	)
}

func (c *Client) logResponse(r *resty.Response) {
	c.logger.Debug("HTTP Response",
		"status", r.StatusCode(),
		"url", r.Request.URL,
		"time", r.Time(),
		"body", truncateBody(r.String()),
	)
}

// maxLoggedBody is the display width of a response body in debug logs
const maxLoggedBody = 1000

// truncateBody shortens s to maxLoggedBody cells without splitting a rune
func truncateBody(s string) string {
	return runewidth.Truncate(s, maxLoggedBody, "... (truncated)")
}
