// Package cmd implements the mcp CLI using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediactl/mcp-go/internal/config"
	"github.com/mediactl/mcp-go/internal/container"
	"github.com/mediactl/mcp-go/mcp"
)

var (
	cfgPath string
	verbose bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "mcp",
	Short: "mcp — Media Control Protocol client",
	Long:  "mcp — command line client for Media Control Protocol services",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = mcp.Version

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// newLogger builds the CLI logger. Debug level when --verbose is set,
// warnings and up otherwise so normal output stays clean.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildContainer loads configuration and wires the service container.
func buildContainer() (*container.Container, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return container.New(cfg, newLogger())
}
