// Package text provides typed helpers for the MCP text product: prompt
// templating over the core client for generation, summarization,
// translation and analysis.
package text

import (
	"context"
	"fmt"

	"github.com/mediactl/mcp-go/mcp"
)

// DefaultModel is used when the caller does not pick one.
const DefaultModel = "gpt-4"

// Response is the typed shape of a text product reply.
type Response struct {
	ID        string         `json:"id"`
	Model     string         `json:"model"`
	Content   string         `json:"content"`
	CreatedAt string         `json:"created_at"`
	Usage     map[string]int `json:"usage,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Client fronts an mcp.Client with text operations.
type Client struct {
	core  *mcp.Client
	model string
}

// NewClient wraps the core client. model may be empty to use
// DefaultModel.
func NewClient(core *mcp.Client, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{core: core, model: model}
}

// Generate produces text from a prompt. settings may be nil.
func (c *Client) Generate(ctx context.Context, prompt string, settings map[string]any) (*Response, error) {
	return c.send(ctx, prompt, settings)
}

// Summarize produces a summary of the given text.
func (c *Client) Summarize(ctx context.Context, text string, settings map[string]any) (*Response, error) {
	return c.send(ctx, fmt.Sprintf("Summarize the following text:\n\n%s", text), settings)
}

// Translate translates text into the target language.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string, settings map[string]any) (*Response, error) {
	return c.send(ctx, fmt.Sprintf("Translate the following text to %s:\n\n%s", targetLanguage, text), settings)
}

// AnalyzeSentiment reports the sentiment of the given text.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string, settings map[string]any) (*Response, error) {
	return c.send(ctx, fmt.Sprintf("Analyze the sentiment of the following text:\n\n%s", text), settings)
}

// ExtractKeywords lists the keywords found in the given text.
func (c *Client) ExtractKeywords(ctx context.Context, text string, settings map[string]any) (*Response, error) {
	return c.send(ctx, fmt.Sprintf("Extract keywords from the following text:\n\n%s", text), settings)
}

func (c *Client) send(ctx context.Context, prompt string, settings map[string]any) (*Response, error) {
	if settings == nil {
		settings = mcp.DefaultSettings()
	}
	resp, err := c.core.Send(ctx, &mcp.Request{
		Model:    c.model,
		Context:  prompt,
		Settings: settings,
	})
	if err != nil {
		return nil, err
	}

	var out Response
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
