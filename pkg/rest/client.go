// Package rest provides the shared request plumbing for management API resources
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Client holds validated options shared by all resources of one API
type Client struct {
	baseURL     *url.URL
	headers     http.Header
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	logger      *zap.Logger
	observer    Observer
}

// New validates the options and creates a client. Configuration errors
// wrap ErrConfig.
func New(opts *Options) (*Client, error) {
	if opts == nil {
		return nil, ErrMissingOptions
	}
	if opts.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	baseURL, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header, len(opts.Headers)+2)
	headers.Set("Accept", "application/json")
	headers.Set("User-Agent", defaultUserAgent())
	if opts.UserAgent != "" {
		headers.Set("User-Agent", opts.UserAgent)
	}
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     baseURL,
		headers:     headers,
		tokenSource: opts.TokenSource,
		httpClient:  httpClient,
		logger:      logger,
		observer:    opts.Observer,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrInvalidBaseURL
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}

	// Query and fragment never belong to a resource URL
	u.RawQuery = ""
	u.Fragment = ""

	return u, nil
}

// Resource returns the endpoint at resourcePath below the base URL
func (c *Client) Resource(resourcePath string) *Resource {
	u := *c.baseURL
	u.Path = path.Join("/", u.Path, resourcePath)
	u.RawPath = ""

	return &Resource{
		client: c,
		path:   resourcePath,
		url:    u.String(),
	}
}

// Resource is a single endpoint of the API
type Resource struct {
	client *Client
	path   string
	url    string
}

// URL returns the absolute endpoint URL
func (r *Resource) URL() string {
	return r.url
}

// Create POSTs data to the resource and returns the response body
// unchanged. An empty response body yields a nil result.
func (r *Resource) Create(ctx context.Context, data any) (json.RawMessage, error) {
	return r.client.do(ctx, http.MethodPost, r, data)
}

// CreateAsync starts Create on its own goroutine
func (r *Resource) CreateAsync(ctx context.Context, data any) *Promise {
	p := newPromise()
	go func() {
		p.resolve(r.Create(ctx, data))
	}()
	return p
}

// CreateWithCallback starts Create on its own goroutine and invokes cb
// exactly once with the outcome
func (r *Resource) CreateWithCallback(ctx context.Context, data any, cb Callback) {
	r.CreateAsync(ctx, data).Then(cb)
}

func (c *Client) do(ctx context.Context, method string, r *Resource, data any) (json.RawMessage, error) {
	start := time.Now()
	body, status, err := c.send(ctx, method, r.url, data)
	elapsed := time.Since(start)

	c.logger.Debug("management api call",
		zap.String("method", method),
		zap.String("path", r.path),
		zap.Int("status", status),
		zap.Duration("duration", elapsed),
		zap.Error(err),
	)

	if c.observer != nil {
		c.observer.ObserveRequest(RequestInfo{
			Method:     method,
			Path:       r.path,
			StatusCode: status,
			Duration:   elapsed,
			Err:        err,
		})
	}

	return body, err
}

func (c *Client) send(ctx context.Context, method, target string, data any) (json.RawMessage, int, error) {
	fail := func(err error) (json.RawMessage, int, error) {
		return nil, 0, &RequestError{Method: method, URL: target, Err: err}
	}

	// Encode body
	var reqBody io.Reader
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fail(fmt.Errorf("encoding request body: %w", err))
		}
		reqBody = bytes.NewReader(encoded)
	}

	// Build request
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fail(fmt.Errorf("creating request: %w", err))
	}
	req.Header = c.headers.Clone()
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return fail(fmt.Errorf("obtaining access token: %w", err))
		}
		token.SetAuthHeader(req)
	}

	// Send request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	// Read response body
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &RequestError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("reading response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, newStatusError(method, target, resp.StatusCode, respBody)
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, resp.StatusCode, nil
	}

	return json.RawMessage(respBody), resp.StatusCode, nil
}
