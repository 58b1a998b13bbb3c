package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediactl/mcp-go/internal/cmdutils"
	"github.com/mediactl/mcp-go/mcp"
)

var (
	sendModel    string
	sendContext  string
	sendSet      []string
	sendSettings string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a processing request",
	Long: `Send a single processing request to the configured endpoint.

The context is read from --context, or from stdin when --context is "-".
Settings can be given as repeated --set key=value pairs or as a full
JSON object via --settings.`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendModel, "model", "m", "", "Model identifier (required)")
	sendCmd.Flags().StringVar(&sendContext, "context", "", "Request context, or - to read stdin (required)")
	sendCmd.Flags().StringArrayVar(&sendSet, "set", nil, "Setting as key=value (repeatable)")
	sendCmd.Flags().StringVar(&sendSettings, "settings", "", "Settings as a JSON object")
	_ = sendCmd.MarkFlagRequired("model")
	_ = sendCmd.MarkFlagRequired("context")
}

func runSend(_ *cobra.Command, _ []string) error {
	c, err := buildContainer()
	if err != nil {
		return err
	}

	reqContext := sendContext
	if reqContext == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		reqContext = strings.TrimSpace(string(data))
	}

	settings, err := buildSettings(sendSettings, sendSet)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	resp, err := c.Client().Send(ctx, &mcp.Request{
		Model:    sendModel,
		Context:  reqContext,
		Settings: settings,
	})
	if err != nil {
		return err
	}
	return cmdutils.PrintJSON(resp.Data)
}

// buildSettings merges a JSON settings object with key=value overrides.
// Override values are parsed as JSON scalars when possible so numbers
// and booleans keep their type on the wire.
func buildSettings(raw string, pairs []string) (map[string]any, error) {
	var settings map[string]any
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return nil, fmt.Errorf("parse --settings: %w", err)
		}
	}
	if len(pairs) > 0 && settings == nil {
		settings = make(map[string]any)
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", pair)
		}
		settings[key] = parseScalar(value)
	}
	return settings, nil
}

// parseScalar interprets a flag value as a bool, number, or string.
func parseScalar(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
