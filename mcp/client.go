// Package mcp implements a client for the Media Control Protocol API:
// a typed request/response wrapper over JSON-over-HTTPS with bounded
// retries and a typed error taxonomy.
package mcp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const processPath = "/api/v1/process"

// Client talks to a single MCP endpoint. It is safe for concurrent use;
// all per-call state lives on the stack of Send.
type Client struct {
	apiKey   string
	endpoint string

	httpClient         *http.Client
	insecureSkipVerify bool

	timeout       time.Duration
	maxRetries    int
	backoffFactor float64
	backoffFunc   func(attempt int) time.Duration
	retryStatuses map[int]bool
	headers       map[string]string
	info          ClientInfo
	logger        *slog.Logger
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout. The default is 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxRetries sets how many times a transient failure is retried
// after the initial attempt. The default is 3.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoffFactor sets the base of the exponential backoff curve:
// the delay before retry n is factor × 2^(n-1) seconds, jittered and
// capped. The default factor is 0.5.
func WithBackoffFactor(f float64) Option {
	return func(c *Client) { c.backoffFactor = f }
}

// WithBackoffFunc replaces the backoff curve entirely. Tests use this
// to retry without wall-clock waits.
func WithBackoffFunc(fn func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoffFunc = fn }
}

// WithRetryStatuses replaces the set of HTTP statuses treated as
// transient. The default is 408, 429, 500, 502, 503 and 504.
func WithRetryStatuses(statuses ...int) Option {
	return func(c *Client) {
		c.retryStatuses = make(map[int]bool, len(statuses))
		for _, s := range statuses {
			c.retryStatuses[s] = true
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client, e.g. to add a
// proxy or a custom transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeaders adds custom headers sent on every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) { c.headers = headers }
}

// WithClientInfo overrides the identity reported to the server.
func WithClientInfo(info ClientInfo) Option {
	return func(c *Client) { c.info = info }
}

// WithLogger sets the structured logger. The default discards nothing:
// slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Only
// meant for talking to development servers. It composes with
// WithHTTPClient regardless of option order.
func WithInsecureSkipVerify() Option {
	return func(c *Client) { c.insecureSkipVerify = true }
}

// New creates a client for the given endpoint. The API key and endpoint
// are required; the endpoint must be an http or https URL.
func New(apiKey, endpoint string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Message: "API key is required", Setting: "api_key"}
	}
	if endpoint == "" {
		return nil, &ConfigurationError{Message: "endpoint is required", Setting: "endpoint"}
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, &ConfigurationError{
			Message: "endpoint must start with http:// or https://",
			Setting: "endpoint",
		}
	}

	c := &Client{
		apiKey:        apiKey,
		endpoint:      strings.TrimRight(endpoint, "/"),
		timeout:       30 * time.Second,
		maxRetries:    3,
		backoffFactor: 0.5,
		retryStatuses: map[int]bool{408: true, 429: true, 500: true, 502: true, 503: true, 504: true},
		info:          defaultClientInfo(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.insecureSkipVerify {
		hc := *c.httpClient
		hc.Transport = insecureTransport(hc.Transport)
		c.httpClient = &hc
	}
	return c, nil
}

// insecureTransport returns a copy of base with certificate
// verification disabled. The caller's transport is never mutated.
func insecureTransport(base http.RoundTripper) http.RoundTripper {
	var tr *http.Transport
	switch t := base.(type) {
	case nil:
		tr = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		tr = t.Clone()
	default:
		// Custom round trippers manage their own TLS settings.
		return base
	}
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.InsecureSkipVerify = true
	return tr
}

// Endpoint returns the normalized endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Send issues one MCP call. It serializes req, POSTs it to the process
// endpoint, and returns the parsed JSON response unchanged. Transient
// failures (network errors, timeouts, retriable statuses) are retried
// up to the configured limit; everything else surfaces immediately as
// one of the typed errors in this package.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"model":   req.Model,
		"context": req.Context,
	}
	if req.Settings != nil {
		body["settings"] = req.Settings
	}
	if req.Metadata != nil {
		body["metadata"] = req.Metadata
	}
	return c.SendRaw(ctx, body)
}

// SendRaw issues a call with an arbitrary JSON body. It exists for
// protocol operations that do not fit the Request shape, such as
// schema discovery and session management. The client_info field is
// injected when the caller did not set one.
func (c *Client) SendRaw(ctx context.Context, body map[string]any) (*Response, error) {
	if _, ok := body["client_info"]; !ok {
		body = cloneBody(body)
		body["client_info"] = c.info
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ValidationError{
			APIError: APIError{Message: fmt.Sprintf("request is not serializable: %v", err)},
		}
	}
	return c.roundTrip(ctx, http.MethodPost, processPath, payload)
}

// SendBatch issues several calls concurrently, at most concurrency at
// a time (0 means unbounded). Responses are positionally aligned with
// reqs. The first failure cancels the remaining calls.
func (c *Client) SendBatch(ctx context.Context, reqs []*Request, concurrency int) ([]*Response, error) {
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	responses := make([]*Response, len(reqs))
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := c.Send(ctx, req)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

// roundTrip runs the bounded retry loop around a single HTTP exchange.
// All SDK surfaces (Send, resources) funnel through here so they share
// retry and error semantics.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	var last error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt, last)
			c.logger.Warn("retrying MCP request",
				"method", method,
				"path", path,
				"attempt", attempt,
				"delay", delay,
				"error", last,
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("request aborted: %w", err)
			}
		}

		resp, err := c.do(ctx, method, path, payload)
		if err == nil {
			return resp, nil
		}
		// Cancellation wins over classification: a killed connection
		// looks like a network error but must not be retried.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("request aborted: %w", ctxErr)
		}
		if !retriable(err, c.retryStatuses) {
			return nil, err
		}
		last = err
	}
	return nil, &RetriesExhaustedError{Attempts: c.maxRetries + 1, Err: last}
}

// do performs exactly one HTTP attempt and classifies the outcome.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, c.endpoint+path, body)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("build request: %v", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", requestID)
	c.setClientInfoHeaders(req.Header)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("MCP request", "method", method, "path", path, "request_id", requestID)

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Parent context cancelled or expired; roundTrip surfaces it.
			return nil, &ConnectionError{Err: err}
		}
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, &TimeoutError{Timeout: c.timeout, Err: err}
		}
		return nil, &ConnectionError{Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, &TimeoutError{Timeout: c.timeout, Err: err}
		}
		return nil, &ConnectionError{Err: err}
	}
	elapsed := time.Since(start)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, c.statusError(httpResp, raw)
	}

	data := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, &InvalidResponseError{Err: err}
		}
	}

	if id := httpResp.Header.Get("X-Request-ID"); id != "" {
		requestID = id
	}
	return &Response{
		Data: data,
		Meta: ResponseMeta{
			RequestID:  requestID,
			StatusCode: httpResp.StatusCode,
			Elapsed:    elapsed,
		},
	}, nil
}

// statusError maps a non-2xx response to the typed error taxonomy.
func (c *Client) statusError(resp *http.Response, raw []byte) error {
	var errBody map[string]any
	_ = json.Unmarshal(raw, &errBody) // best effort; nil on failure

	base := APIError{
		StatusCode: resp.StatusCode,
		Response:   errBody,
		RetryAfter: parseRetryAfter(resp.Header),
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		base.Message = "invalid API key"
		return &AuthenticationError{APIError: base}
	case http.StatusForbidden:
		base.Message = "permission denied"
		return &PermissionError{APIError: base}
	case http.StatusNotFound:
		base.Message = "resource not found"
		return &NotFoundError{APIError: base}
	case http.StatusUnprocessableEntity:
		base.Message = "invalid request parameters"
		fields, _ := errBody["errors"].(map[string]any)
		return &ValidationError{APIError: base, Fields: fields}
	case http.StatusTooManyRequests:
		base.Message = "rate limit exceeded"
		return &RateLimitError{APIError: base, RetryAfter: base.RetryAfter}
	default:
		base.Message = "MCP API request failed"
		return &base
	}
}

// setClientInfoHeaders writes the X-Client-* identity headers.
func (c *Client) setClientInfoHeaders(h http.Header) {
	h.Set("X-Client-Name", c.info.Name)
	h.Set("X-Client-Version", c.info.Version)
	h.Set("X-Client-Platform", c.info.Platform)
	h.Set("X-Client-Environment", c.info.Environment)
	h.Set("X-Client-Language", c.info.Language)
	h.Set("X-Client-Language-Version", c.info.LanguageVersion)
	h.Set("X-Client-SDK-Version", c.info.SDKVersion)
	if c.info.ClientID != "" {
		h.Set("X-Client-ID", c.info.ClientID)
	}
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// isTimeout reports whether err is a network-level timeout.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still give cancellation a chance between attempts.
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cloneBody(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
