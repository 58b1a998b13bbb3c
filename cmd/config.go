package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mediactl/mcp-go/internal/cmdutils"
	"github.com/mediactl/mcp-go/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with defaults",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file locations searched",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := cfgPath
	if path == "" {
		path = filepath.Join(config.DataDir(), "config.json")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	cfg := config.DefaultConfig()
	cfg.APIKey = "your-api-key"
	cfg.Endpoint = "https://api.example.com"
	if err := config.Save(&cfg, path); err != nil {
		return err
	}
	fmt.Printf("✓ Created config at %s\n", path)
	fmt.Println("Edit it to set your API key and endpoint.")
	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	masked := *cfg
	masked.APIKey = maskKey(cfg.APIKey)
	return cmdutils.PrintJSON(&masked)
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	if cfgPath != "" {
		fmt.Println(cfgPath)
		return nil
	}
	for _, candidate := range config.SearchPaths() {
		mark := ""
		if _, err := os.Stat(candidate); err == nil {
			mark = " ✓"
		}
		fmt.Printf("%s%s\n", candidate, mark)
	}
	return nil
}
