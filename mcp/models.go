package mcp

import (
	"encoding/json"
	"runtime"
	"time"
)

// Version is the SDK version reported to the server via client info.
const Version = "0.1.0"

// Request is a single MCP call. Model and Context are required;
// Settings is a free-form mapping forwarded to the server as-is.
type Request struct {
	Model    string         `json:"model"`
	Context  string         `json:"context"`
	Settings map[string]any `json:"settings,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// validate checks the required fields before any HTTP attempt.
func (r *Request) validate() error {
	if r == nil {
		return &ValidationError{APIError: APIError{Message: "request is nil"}}
	}
	if r.Model == "" {
		return &ValidationError{
			APIError: APIError{Message: "invalid request parameters"},
			Fields:   map[string]any{"model": "required"},
		}
	}
	if r.Context == "" {
		return &ValidationError{
			APIError: APIError{Message: "invalid request parameters"},
			Fields:   map[string]any{"context": "required"},
		}
	}
	return nil
}

// DefaultSettings returns the documented default generation settings.
func DefaultSettings() map[string]any {
	return map[string]any{
		"temperature": 0.7,
		"max_tokens":  150,
	}
}

// Response wraps the parsed JSON object returned by the server. Data is
// passed through unchanged; the SDK enforces no schema on it.
type Response struct {
	Data map[string]any
	Meta ResponseMeta
}

// Decode re-marshals the opaque response mapping into a typed value.
// Product packages use it to give responses a concrete shape.
func (r *Response) Decode(v any) error {
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return &InvalidResponseError{Err: err}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &InvalidResponseError{Err: err}
	}
	return nil
}

// ResponseMeta carries transport-level details of the call that
// produced a Response.
type ResponseMeta struct {
	RequestID  string
	StatusCode int
	Elapsed    time.Duration
}

// ClientInfo identifies the calling application to the server. It is
// sent as X-Client-* headers and injected into the request body when
// the caller did not set one.
type ClientInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Platform        string `json:"platform"`
	Environment     string `json:"environment"`
	Language        string `json:"language"`
	LanguageVersion string `json:"language_version"`
	SDKVersion      string `json:"sdk_version"`
	ClientID        string `json:"client_id,omitempty"`
}

// defaultClientInfo fills in the SDK's own identity.
func defaultClientInfo() ClientInfo {
	return ClientInfo{
		Name:            "mcp-go-client",
		Version:         Version,
		Platform:        runtime.GOOS,
		Environment:     "production",
		Language:        "go",
		LanguageVersion: runtime.Version(),
		SDKVersion:      Version,
	}
}
