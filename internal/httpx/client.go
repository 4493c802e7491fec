// Package httpx wraps outbound API calls with a per-request timeout and
// bounded exponential-backoff retry for transient failures.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// retryableStatus holds the statuses worth retrying: timeouts, throttling,
// and transient server failures. Anything else is returned to the caller.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config holds client configuration. Zero values get sensible defaults.
type Config struct {
	Timeout    time.Duration // per-exchange timeout, default 12s
	MaxRetries int           // retries after the first attempt, default 2
	RetryBase  time.Duration // first backoff delay, doubled per retry, default 500ms
	Logger     *slog.Logger
}

// Client issues HTTP requests with timeout and retry. Safe for concurrent use.
type Client struct {
	http       *http.Client
	maxRetries uint64
	retryBase  time.Duration
	log        *slog.Logger
}

// New creates a Client from cfg, filling in defaults for zero values.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: uint64(cfg.MaxRetries),
		retryBase:  cfg.RetryBase,
		log:        cfg.Logger,
	}
}

// Do performs the request, retrying on transport errors and retryable
// statuses with exponential backoff. When retries run out on a transport
// error, that error is returned; when they run out on a retryable status,
// the last response is returned for the caller to inspect. Non-retryable
// statuses are returned immediately without retry. The caller owns the
// returned response body.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, header http.Header) (*http.Response, error) {
	reqID := uuid.NewString()
	var (
		resp    *http.Response
		attempt int
	)

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		n := attempt
		attempt++

		// A prior attempt's retryable-status response is no longer needed.
		if resp != nil {
			drain(resp)
			resp = nil
		}

		r, err := c.attempt(ctx, method, url, body, header)
		if err != nil {
			c.log.Debug("request attempt failed",
				"id", reqID, "method", method, "url", url, "attempt", n, "error", err)
			return retry.RetryableError(err)
		}
		resp = r
		if retryableStatus[r.StatusCode] {
			c.log.Debug("retryable response status",
				"id", reqID, "method", method, "url", url, "attempt", n, "status", r.StatusCode)
			return retry.RetryableError(&StatusError{Code: r.StatusCode})
		}
		return nil
	})
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) && resp != nil {
			// Retries exhausted on a bad status: the caller decides what to
			// do with the final response.
			return resp, nil
		}
		if resp != nil {
			drain(resp)
		}
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return resp, nil
}

// Get is Do with GET, no body, and no extra headers.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, nil)
}

// JSON performs the request, encoding in as the JSON body when non-nil, and
// decodes a successful response into out. A non-2xx final response becomes a
// *StatusError carrying the response body text.
func (c *Client) JSON(ctx context.Context, method, url string, in, out any) error {
	var (
		body   []byte
		header http.Header
	)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = b
		header = http.Header{"Content-Type": []string{"application/json"}}
	}

	resp, err := c.Do(ctx, method, url, body, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// attempt builds and sends a single request. The body is rebuilt per attempt
// because a consumed reader cannot be resent.
func (c *Client) attempt(ctx context.Context, method, url string, body []byte, header http.Header) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.http.Do(req)
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
