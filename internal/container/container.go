// Package container wires the SDK services used by the CLI with
// go.uber.org/dig.
package container

import (
	"log/slog"

	"go.uber.org/dig"

	"github.com/mediactl/mcp-go/internal/config"
	"github.com/mediactl/mcp-go/mcp"
	"github.com/mediactl/mcp-go/mcp/image"
	"github.com/mediactl/mcp-go/mcp/text"
	"github.com/mediactl/mcp-go/mcp/users"
)

// Container holds the resolved service singletons. Callers use the
// typed getters; they never need to import dig directly.
type Container struct {
	cfg    *config.Config
	client *mcp.Client
	text   *text.Client
	image  *image.Client
	users  *users.Client
}

func (c *Container) Config() *config.Config { return c.cfg }
func (c *Container) Client() *mcp.Client    { return c.client }
func (c *Container) Text() *text.Client     { return c.text }
func (c *Container) Image() *image.Client   { return c.image }
func (c *Container) Users() *users.Client   { return c.users }

// New builds and wires all services from cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(func() *slog.Logger { return logger }); err != nil {
		return nil, err
	}
	if err := d.Provide(newClient); err != nil {
		return nil, err
	}
	if err := d.Provide(newTextClient); err != nil {
		return nil, err
	}
	if err := d.Provide(newImageClient); err != nil {
		return nil, err
	}
	if err := d.Provide(users.NewClient); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		client *mcp.Client,
		textClient *text.Client,
		imageClient *image.Client,
		userClient *users.Client,
	) {
		result = &Container{
			cfg:    cfg,
			client: client,
			text:   textClient,
			image:  imageClient,
			users:  userClient,
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func newClient(cfg *config.Config, logger *slog.Logger) (*mcp.Client, error) {
	opts := cfg.ClientOptions()
	if logger != nil {
		opts = append(opts, mcp.WithLogger(logger))
	}
	return mcp.New(cfg.APIKey, cfg.Endpoint, opts...)
}

func newTextClient(core *mcp.Client) *text.Client {
	return text.NewClient(core, "")
}

func newImageClient(core *mcp.Client) *image.Client {
	return image.NewClient(core, "")
}
