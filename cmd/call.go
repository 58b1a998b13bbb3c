package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediactl/mcp-go/internal/cmdutils"
	"github.com/mediactl/mcp-go/mcp/schema"
)

var callArgs []string

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List commands advertised by the server",
	RunE:  runCommands,
}

var callCmd = &cobra.Command{
	Use:   "call <command>",
	Short: "Call a server command with validated arguments",
	Long: `Call a named server command. Arguments are given as repeated
--arg key=value pairs and are validated against the command schema
fetched from the server before anything is sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringArrayVarP(&callArgs, "arg", "a", nil, "Command argument as key=value (repeatable)")
}

func runCommands(_ *cobra.Command, _ []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	mgr, err := schema.Fetch(ctx, c.Client())
	if err != nil {
		return err
	}

	for _, name := range mgr.Commands() {
		cs, _ := mgr.Command(name)
		if cs.Description != "" {
			fmt.Printf("%-24s %s\n", name, cs.Description)
		} else {
			fmt.Println(name)
		}
	}
	return nil
}

func runCall(_ *cobra.Command, args []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	command := args[0]
	callValues, err := parseArgPairs(callArgs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	mgr, err := schema.Fetch(ctx, c.Client())
	if err != nil {
		return err
	}

	validated, err := mgr.Validate(command, callValues)
	if err != nil {
		if help := mgr.Help(command); help != "" {
			cmdutils.Warnf("%s", help)
		}
		return err
	}

	resp, err := c.Client().SendRaw(ctx, map[string]any{
		"command":   command,
		"arguments": validated,
	})
	if err != nil {
		return err
	}
	return cmdutils.PrintJSON(resp.Data)
}

func parseArgPairs(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}
