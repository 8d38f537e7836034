package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"

	"github.com/dmitrymomot/authsession/pkg/logger"
	"github.com/dmitrymomot/authsession/pkg/requestid"
)

const (
	DefaultBasePath  = "/auth"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "authsession/1.0"

	// maxBodySize caps how much of a response is buffered.
	maxBodySize = 1 << 20
)

// Client sends requests to the auth service. Safe for concurrent use.
type Client struct {
	base      *url.URL
	basePath  string
	timeout   time.Duration
	userAgent string
	headers   http.Header

	jar     http.CookieJar
	custom  *http.Client
	http    *http.Client
	breaker *CircuitBreaker
	logger  *slog.Logger
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidBaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidBaseURL)
	}

	c := &Client{
		base:      u,
		basePath:  DefaultBasePath,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		headers:   make(http.Header),
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		c.jar = jar
	}

	if c.custom != nil {
		hc := *c.custom
		if hc.Jar == nil {
			hc.Jar = c.jar
		} else {
			c.jar = hc.Jar
		}
		c.http = &hc
	} else {
		c.http = &http.Client{
			Jar: c.jar,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return c, nil
}

// URL returns the absolute address of endpoint.
func (c *Client) URL(endpoint string) string {
	return c.base.JoinPath(c.basePath, endpoint).String()
}

// Jar exposes the cookie jar so embedding code can share it with other clients.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Breaker returns the configured circuit breaker, or nil.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// Send issues a request and buffers the response. body is JSON-encoded when
// non-nil. Any HTTP status is returned as a Response, not an error.
func (c *Client) Send(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
		}
		payload = bytes.NewReader(data)
	}

	ctx, reqID := requestid.Ensure(ctx)

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.URL(endpoint), payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestid.Header, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.failure(ctx, reqCtx, method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, c.failure(ctx, reqCtx, method, endpoint, err)
	}

	if c.breaker != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}

	c.logger.DebugContext(ctx, "auth request completed",
		logger.Method(method),
		logger.Endpoint(endpoint),
		logger.Status(resp.StatusCode),
		logger.Duration(time.Since(start)),
	)

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// failure classifies an I/O error. Caller cancellation is reported as the
// context error and does not count against the circuit breaker.
func (c *Client) failure(ctx, reqCtx context.Context, method, endpoint string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("transport: %s %s: %w", method, endpoint, ctxErr)
	}
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, method, endpoint, err)
	}
	return fmt.Errorf("%w: %s %s: %s", ErrRequestFailed, method, endpoint, sanitize(err.Error()))
}

const maxErrorText = 200

// sanitize keeps error text on one line and cuts it on a rune boundary.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxErrorText {
		n := maxErrorText
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n] + "..."
	}
	return s
}
