// Package image provides typed helpers for the MCP image product.
package image

import (
	"context"

	"github.com/mediactl/mcp-go/mcp"
)

// DefaultModel is used when the caller does not pick one.
const DefaultModel = "dall-e-3"

// Operation names the image operations the product supports.
type Operation string

const (
	OpGenerate  Operation = "generate"
	OpEdit      Operation = "edit"
	OpVariation Operation = "variation"
	OpAnalyze   Operation = "analyze"
	OpCaption   Operation = "caption"
)

// Params tunes an image operation. Zero values fall back to the
// product defaults (1024x1024, standard quality, one image).
type Params struct {
	Size    string
	Quality string
	Style   string
	Count   int
}

func (p Params) settings(op Operation) map[string]any {
	s := map[string]any{
		"operation": string(op),
		"size":      "1024x1024",
		"quality":   "standard",
		"n":         1,
	}
	if p.Size != "" {
		s["size"] = p.Size
	}
	if p.Quality != "" {
		s["quality"] = p.Quality
	}
	if p.Style != "" {
		s["style"] = p.Style
	}
	if p.Count > 0 {
		s["n"] = p.Count
	}
	return s
}

// Generated is one produced image, either by URL or inline base64.
type Generated struct {
	URL  string `json:"url,omitempty"`
	B64  string `json:"b64,omitempty"`
	Seed int64  `json:"seed,omitempty"`
}

// Response is the typed shape of an image product reply.
type Response struct {
	ID        string         `json:"id"`
	Model     string         `json:"model"`
	Images    []Generated    `json:"images,omitempty"`
	Content   string         `json:"content,omitempty"` // captions and analysis text
	CreatedAt string         `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Client fronts an mcp.Client with image operations.
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

// Generate creates images from a prompt.
func (c *Client) Generate(ctx context.Context, prompt string, p Params) (*Response, error) {
	return c.send(ctx, prompt, p.settings(OpGenerate))
}

// Variation produces variations of a base64-encoded source image.
func (c *Client) Variation(ctx context.Context, imageB64 string, p Params) (*Response, error) {
	s := p.settings(OpVariation)
	s["image"] = imageB64
	return c.send(ctx, "variation", s)
}

// Caption describes a base64-encoded image in natural language.
func (c *Client) Caption(ctx context.Context, imageB64 string, maxLength int) (*Response, error) {
	s := Params{}.settings(OpCaption)
	s["image"] = imageB64
	if maxLength > 0 {
		s["max_length"] = maxLength
	}
	return c.send(ctx, "caption", s)
}

// Analyze runs the named analysis (general, objects, faces, text,
// colors) over a base64-encoded image.
func (c *Client) Analyze(ctx context.Context, imageB64, analysisType string) (*Response, error) {
	s := Params{}.settings(OpAnalyze)
	s["image"] = imageB64
	if analysisType != "" {
		s["analysis_type"] = analysisType
	}
	return c.send(ctx, "analyze", s)
}

func (c *Client) send(ctx context.Context, prompt string, settings map[string]any) (*Response, error) {
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
