package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// noBackoff removes retry delays so tests run without wall-clock waits.
var noBackoff = WithBackoffFunc(func(int) time.Duration { return 0 })

// newTestClient builds a client against a stub server with instant retries.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{noBackoff}, opts...)
	c, err := New("test-key", srv.URL, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func okHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New("", "https://api.example.com")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Setting != "api_key" {
		t.Errorf("expected setting api_key, got %q", cfgErr.Setting)
	}
}

func TestNew_MissingEndpoint(t *testing.T) {
	_, err := New("key", "")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestNew_BadScheme(t *testing.T) {
	_, err := New("key", "ftp://api.example.com")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestNew_InsecureSkipVerifyKeepsCustomClient(t *testing.T) {
	base := &http.Transport{MaxIdleConns: 7}
	custom := &http.Client{Timeout: 42 * time.Second, Transport: base}

	orders := [][]Option{
		{WithHTTPClient(custom), WithInsecureSkipVerify()},
		{WithInsecureSkipVerify(), WithHTTPClient(custom)},
	}
	for _, opts := range orders {
		c, err := New("key", "https://api.example.com", opts...)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if c.httpClient.Timeout != 42*time.Second {
			t.Errorf("custom client timeout lost: %s", c.httpClient.Timeout)
		}
		tr, ok := c.httpClient.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("expected *http.Transport, got %T", c.httpClient.Transport)
		}
		if tr.MaxIdleConns != 7 {
			t.Errorf("custom transport settings lost: MaxIdleConns = %d", tr.MaxIdleConns)
		}
		if tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
			t.Error("expected certificate verification disabled")
		}
	}
	if base.TLSClientConfig != nil {
		t.Error("caller's transport must not be mutated")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("key", "https://api.example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Endpoint() != "https://api.example.com" {
		t.Errorf("expected trimmed endpoint, got %q", c.Endpoint())
	}
}

func TestSend_Success(t *testing.T) {
	srv := httptest.NewServer(okHandler(`{"result": "ok"}`))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Send(context.Background(), &Request{
		Model:    "gpt-4",
		Context:  "hi",
		Settings: map[string]any{"temperature": 0.7},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.Data["result"]; got != "ok" {
		t.Errorf(`expected result "ok", got %v`, got)
	}
	if resp.Meta.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.Meta.StatusCode)
	}
	if resp.Meta.RequestID == "" {
		t.Error("expected a request ID")
	}
}

func TestSend_WirePayloadAndHeaders(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		okHandler(`{}`)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithHeaders(map[string]string{"X-Custom": "yes"}))
	_, err := c.Send(context.Background(), &Request{
		Model:    "gpt-4",
		Context:  "hello",
		Settings: map[string]any{"max_tokens": 42},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotHeader.Get("Authorization") != "Bearer test-key" {
		t.Errorf("missing bearer token, got %q", gotHeader.Get("Authorization"))
	}
	if gotHeader.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content type %q", gotHeader.Get("Content-Type"))
	}
	if gotHeader.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if gotHeader.Get("X-Client-Language") != "go" {
		t.Errorf("expected X-Client-Language go, got %q", gotHeader.Get("X-Client-Language"))
	}
	if gotHeader.Get("X-Custom") != "yes" {
		t.Error("custom header not forwarded")
	}

	if gotBody["model"] != "gpt-4" || gotBody["context"] != "hello" {
		t.Errorf("unexpected body: %v", gotBody)
	}
	settings, _ := gotBody["settings"].(map[string]any)
	if settings["max_tokens"] != float64(42) {
		t.Errorf("unexpected settings: %v", gotBody["settings"])
	}
	if _, ok := gotBody["client_info"]; !ok {
		t.Error("client_info not injected into body")
	}
}

func TestSend_MissingModel(t *testing.T) {
	c, _ := New("key", "https://api.example.com")
	_, err := c.Send(context.Background(), &Request{Context: "hi"})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if valErr.Fields["model"] != "required" {
		t.Errorf("unexpected fields: %v", valErr.Fields)
	}
}

func TestSend_MissingContext(t *testing.T) {
	c, _ := New("key", "https://api.example.com")
	_, err := c.Send(context.Background(), &Request{Model: "gpt-4"})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSend_TransientThenSuccess(t *testing.T) {
	// Two 503s then success: the client must succeed on the third
	// attempt (k failures → k+1 calls).
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		okHandler(`{"result": "ok"}`)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxRetries(3))
	resp, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Data["result"] != "ok" {
		t.Errorf("unexpected response: %v", resp.Data)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestSend_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxRetries(2))
	_, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetriesExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", exhausted.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected maxRetries+1 = 3 calls, got %d", got)
	}
	var apiErr *APIError
	if !errors.As(exhausted.Err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected wrapped 500 APIError, got %v", exhausted.Err)
	}
}

func TestSend_AuthenticationErrorSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "bad key"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxRetries(5))
	_, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", authErr.StatusCode)
	}
	if authErr.Response["error"] != "bad key" {
		t.Errorf("expected decoded error body, got %v", authErr.Response)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestSend_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			var e *PermissionError
			if !errors.As(err, &e) {
				t.Errorf("expected PermissionError, got %v", err)
			}
		}},
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			var e *NotFoundError
			if !errors.As(err, &e) {
				t.Errorf("expected NotFoundError, got %v", err)
			}
		}},
		{"unprocessable", http.StatusUnprocessableEntity, func(t *testing.T, err error) {
			var e *ValidationError
			if !errors.As(err, &e) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		}},
		{"teapot", http.StatusTeapot, func(t *testing.T, err error) {
			var e *APIError
			if !errors.As(err, &e) {
				t.Errorf("expected APIError, got %v", err)
			} else if e.StatusCode != http.StatusTeapot {
				t.Errorf("expected status 418, got %d", e.StatusCode)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := newTestClient(t, srv)
			_, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})
			tt.check(t, err)
			if got := calls.Load(); got != 1 {
				t.Errorf("4xx must not retry: expected 1 call, got %d", got)
			}
		})
	}
}

func TestSend_RateLimitRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		okHandler(`{"result": "ok"}`)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})
	if err != nil {
		t.Fatalf("expected 429 to be retried, got %v", err)
	}
	if resp.Data["result"] != "ok" {
		t.Errorf("unexpected response: %v", resp.Data)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestSend_RateLimitCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxRetries(0))
	_, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetriesExhaustedError, got %v", err)
	}
	var rate *RateLimitError
	if !errors.As(exhausted.Err, &rate) {
		t.Fatalf("expected wrapped RateLimitError, got %v", exhausted.Err)
	}
	if rate.RetryAfter != 7*time.Second {
		t.Errorf("expected RetryAfter 7s, got %s", rate.RetryAfter)
	}
}

func TestSend_ServiceUnavailableCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "4")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxRetries(0))
	_, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetriesExhaustedError, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(exhausted.Err, &apiErr) {
		t.Fatalf("expected wrapped APIError, got %v", exhausted.Err)
	}
	if apiErr.RetryAfter != 4*time.Second {
		t.Errorf("expected RetryAfter 4s, got %s", apiErr.RetryAfter)
	}
}

func TestSend_RateLimitNotRetriedWhenExcluded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxRetries(3), WithRetryStatuses(500, 502, 503, 504))
	_, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})

	var rate *RateLimitError
	if !errors.As(err, &rate) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestSend_InvalidJSONResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})
	var invalid *InvalidResponseError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("malformed body must not retry: expected 1 call, got %d", got)
	}
}

func TestSend_NonObjectJSONResponse(t *testing.T) {
	srv := httptest.NewServer(okHandler(`[1, 2, 3]`))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})
	var invalid *InvalidResponseError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidResponseError for non-object body, got %v", err)
	}
}

func TestSend_ConnectionError(t *testing.T) {
	// Server is stopped before the call, so every attempt fails to connect.
	srv := httptest.NewServer(okHandler(`{}`))
	url := srv.URL
	srv.Close()

	c, err := New("key", url, noBackoff, WithMaxRetries(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = c.Send(context.Background(), &Request{Model: "m", Context: "c"})

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetriesExhaustedError, got %v", err)
	}
	var connErr *ConnectionError
	if !errors.As(exhausted.Err, &connErr) {
		t.Fatalf("expected wrapped ConnectionError, got %v", exhausted.Err)
	}
}

func TestSend_TimeoutRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Drain the body so the server watches for the client
			// disconnect; otherwise r.Context() is never cancelled
			// and srv.Close deadlocks on this handler.
			_, _ = io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
			return
		}
		okHandler(`{"result": "ok"}`)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithTimeout(50*time.Millisecond))
	resp, err := c.Send(context.Background(), &Request{Model: "m", Context: "c"})
	if err != nil {
		t.Fatalf("expected timeout to be retried, got %v", err)
	}
	if resp.Data["result"] != "ok" {
		t.Errorf("unexpected response: %v", resp.Data)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestSend_Cancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		// See TestSend_TimeoutRetried: drain the body so cancellation
		// reaches r.Context() and the server can shut down.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.Send(ctx, &Request{Model: "m", Context: "c"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSend_CancellationDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv,
		WithBackoffFunc(func(int) time.Duration { return time.Hour }),
		WithMaxRetries(2),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Send(ctx, &Request{Model: "m", Context: "c"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not interrupt the backoff sleep")
	}
}

func TestSendRaw_PreservesCallerClientInfo(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		okHandler(`{}`)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.SendRaw(context.Background(), map[string]any{
		"type":        "get_schemas",
		"client_info": map[string]any{"name": "custom"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, _ := gotBody["client_info"].(map[string]any)
	if info["name"] != "custom" {
		t.Errorf("caller client_info was overwritten: %v", gotBody["client_info"])
	}
}

func TestSendBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": body["context"]})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	reqs := []*Request{
		{Model: "m", Context: "one"},
		{Model: "m", Context: "two"},
		{Model: "m", Context: "three"},
	}
	resps, err := c.SendBatch(context.Background(), reqs, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"one", "two", "three"} {
		if resps[i].Data["echo"] != want {
			t.Errorf("response %d: expected echo %q, got %v", i, want, resps[i].Data["echo"])
		}
	}
}

func TestSendBatch_FirstErrorWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["context"] == "bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		okHandler(`{}`)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.SendBatch(context.Background(), []*Request{
		{Model: "m", Context: "good"},
		{Model: "m", Context: "bad"},
	}, 0)

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError from batch, got %v", err)
	}
}
