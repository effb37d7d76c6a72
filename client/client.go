// Package client provides the HTTP client for a QueryBot server's /ask endpoint.
package client

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

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/papercomputeco/querybot/pkg/ask"
)

// MaxResponseSize caps how much of a response body is read.
const MaxResponseSize = 4 << 20

// Client issues /ask requests. It is safe for concurrent use and may be
// reconfigured while in use; in-flight requests keep the settings they
// started with.
type Client struct {
	mu         sync.RWMutex
	config     Config
	logger     *zap.Logger
	httpClient *http.Client
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// New creates a new Client.
func New(config Config, logger *zap.Logger) (*Client, error) {
	config, err := normalize(config)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{},
	}, nil
}

// Reconfigure swaps the base URL and timeout used for subsequent requests.
func (c *Client) Reconfigure(config Config) error {
	config, err := normalize(config)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.config = config
	c.mu.Unlock()

	c.logger.Info("client reconfigured",
		zap.String("base_url", config.BaseURL),
		zap.Duration("timeout", config.Timeout),
	)
	return nil
}

// Config returns the settings the next request will use.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// Ask posts query to /ask and decodes the reply.
func (c *Client) Ask(ctx context.Context, query string) (*ask.Response, error) {
	config := c.Config()

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	reqBody, err := json.Marshal(ask.Request{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	askURL := config.BaseURL + "/ask"
	c.logger.Debug("sending ask request",
		zap.String("url", askURL),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, askURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("read response: body exceeds %d bytes", MaxResponseSize)
	}

	c.logger.Debug("received ask response",
		zap.Int("status", httpResp.StatusCode),
		zap.Int("body_size", len(body)),
		zap.Duration("duration", time.Since(startTime)),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	resp, err := ask.DecodeResponse(body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return resp, nil
}

// errorMessage pulls {"error": "..."} out of a failure body, falling back to
// a trimmed copy of the raw body.
func errorMessage(body []byte) string {
	var errResp ask.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return errResp.Error
	}
	return truncate(strings.TrimSpace(string(body)), 200)
}

func normalize(config Config) (Config, error) {
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if config.BaseURL == "" {
		return config, fmt.Errorf("base URL is required")
	}

	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return config, fmt.Errorf("invalid base URL %q: %w", config.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return config, fmt.Errorf("invalid base URL %q: scheme must be http or https", config.BaseURL)
	}
	if u.Host == "" {
		return config, fmt.Errorf("invalid base URL %q: missing host", config.BaseURL)
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return config, nil
}

// truncate cuts s to at most maxLen cells without splitting a character.
func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return ansi.Truncate(s, maxLen, "...")
}
