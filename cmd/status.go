package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediactl/mcp-go/internal/config"
	"github.com/mediactl/mcp-go/mcp/schema"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and server reachability",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	fmt.Println("mcp status")
	fmt.Println()

	path := cfgPath
	if path == "" {
		for _, candidate := range config.SearchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		fmt.Printf("Config:    %s ✓\n", path)
	} else {
		fmt.Println("Config:    (none found, environment only)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Endpoint:  %s\n", cfg.Endpoint)
	fmt.Printf("API key:   %s\n", maskKey(cfg.APIKey))
	fmt.Printf("Timeout:   %ds, retries: %d\n\n", cfg.Timeout, cfg.MaxRetries)

	c, err := buildContainer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mgr, err := schema.Fetch(ctx, c.Client())
	if err != nil {
		fmt.Printf("Server:    unreachable (%v)\n", err)
		return nil
	}
	fmt.Printf("Server:    ✓ %d commands available\n", len(mgr.Commands()))
	return nil
}

// maskKey hides all but the last four characters of the API key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
