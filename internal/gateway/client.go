// Package gateway is the shared HTTP client every outgoing call goes through.
//
// A Client is configured once with a base URL and a list of interceptors.
// Responses outside 2xx are turned into *StatusError and, together with
// transport failures, handed to each interceptor's OnError before the caller
// sees them. That is where cross-cutting policy such as SessionGuard lives,
// so individual call sites never check for a 401 themselves.
package gateway

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

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client is the shared HTTP client
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger

	mu           sync.RWMutex
	interceptors []Interceptor
}

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*options)

// WithHTTPClient sets a custom HTTP client. Its transport is wrapped, not replaced.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTokenSource attaches "Authorization: Bearer <token>" to every request
func WithTokenSource(ts TokenSource) Option {
	return func(o *options) { o.tokens = ts }
}

// WithRateLimit limits outgoing requests to rps per second with the given burst
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a client rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	base := &http.Client{}
	if o.httpClient != nil {
		copied := *o.httpClient
		base = &copied
	}
	if o.timeout > 0 {
		base.Timeout = o.timeout
	}

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	// Outermost first: limit, tag, authenticate, log, send
	transport = loggingTransport(transport, o.logger)
	if o.tokens != nil {
		transport = bearerTransport(transport, o.tokens)
	}
	transport = requestIDTransport(transport)
	if o.limiter != nil {
		transport = rateLimitTransport(transport, o.limiter)
	}
	base.Transport = transport

	return &Client{
		baseURL:    u,
		httpClient: base,
		logger:     o.logger,
	}, nil
}

// BaseURL returns the address every relative path is resolved against
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Use registers an interceptor. Interceptors run in registration order.
func (c *Client) Use(i Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, i)
}

// URL resolves path against the base URL
func (c *Client) URL(path string) string {
	ref, err := url.Parse(path)
	if err != nil || ref.IsAbs() {
		return path
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimPrefix(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String()
}

// NewRequest builds a request for path relative to the base URL
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// Do sends req. A 2xx response is returned after the interceptors saw it.
// Anything else comes back as an error, after the interceptors saw it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(&NetworkError{Method: req.Method, URL: req.URL.Redacted(), Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, c.fail(&StatusError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			Body:       bytes.TrimSpace(body),
			Header:     resp.Header,
			Request:    req,
		})
	}

	for _, i := range c.chain() {
		resp, err = i.OnResponse(resp)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			return nil, err
		}
	}
	return resp, nil
}

func (c *Client) fail(err error) error {
	for _, i := range c.chain() {
		err = i.OnError(err)
	}
	return err
}

func (c *Client) chain() []Interceptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interceptors
}

// GetJSON sends GET path and decodes the JSON response into out
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON sends in as a JSON body and decodes the response into out (when non-nil)
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

// PatchJSON sends in as a JSON body and decodes the response into out (when non-nil)
func (c *Client) PatchJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPatch, path, in, out)
}

// Delete sends DELETE path and discards the response body
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil)
}

// PostForm sends form as application/x-www-form-urlencoded and decodes the response into out
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := c.NewRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
