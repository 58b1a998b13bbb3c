// Package schema models the command schemas an MCP server publishes
// and validates CLI-supplied arguments against them.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mediactl/mcp-go/mcp"
)

// ArgumentType enumerates the value types a schema may declare.
type ArgumentType string

const (
	TypeString  ArgumentType = "str"
	TypeInteger ArgumentType = "int"
	TypeFloat   ArgumentType = "float"
	TypeBoolean ArgumentType = "bool"
	TypeJSON    ArgumentType = "json"
	TypeList    ArgumentType = "list"
	TypeDict    ArgumentType = "dict"
)

// ArgumentSchema describes one argument or option of a command.
type ArgumentSchema struct {
	Type        ArgumentType `json:"type"`
	Description string       `json:"description"`
	Required    bool         `json:"required"`
	Default     any          `json:"default,omitempty"`
	Choices     []any        `json:"choices,omitempty"`
	Min         *float64     `json:"min,omitempty"`
	Max         *float64     `json:"max,omitempty"`
	Pattern     string       `json:"pattern,omitempty"`
}

// CommandSchema describes one remote command.
type CommandSchema struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Arguments   map[string]ArgumentSchema `json:"arguments"`
	Options     map[string]ArgumentSchema `json:"options"`
	Examples    []string                  `json:"examples,omitempty"`
	Version     string                    `json:"version,omitempty"`
}

// Manager holds the schemas published by a server.
type Manager struct {
	schemas map[string]CommandSchema
}

// New builds a manager from the raw schemas payload, a mapping of
// command name to schema object.
func New(raw map[string]any) (*Manager, error) {
	schemas := make(map[string]CommandSchema, len(raw))
	for name, v := range raw {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("schema for %q: %w", name, err)
		}
		var cs CommandSchema
		if err := json.Unmarshal(data, &cs); err != nil {
			return nil, fmt.Errorf("schema for %q: %w", name, err)
		}
		if cs.Name == "" {
			cs.Name = name
		}
		schemas[name] = cs
	}
	return &Manager{schemas: schemas}, nil
}

// Fetch retrieves command schemas from the server through the client.
func Fetch(ctx context.Context, client *mcp.Client) (*Manager, error) {
	resp, err := client.SendRaw(ctx, map[string]any{
		"type":    "get_schemas",
		"options": map[string]any{"include_raw": true},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch schemas: %w", err)
	}

	raw := resp.Data
	// Servers may nest the schemas under a "schemas" key.
	if nested, ok := raw["schemas"].(map[string]any); ok {
		raw = nested
	}
	return New(raw)
}

// Commands returns the known command names, sorted.
func (m *Manager) Commands() []string {
	names := make([]string, 0, len(m.schemas))
	for name := range m.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Command returns the schema for a command, or false when unknown.
func (m *Manager) Command(name string) (CommandSchema, bool) {
	cs, ok := m.schemas[name]
	return cs, ok
}

// Validate checks args against the named command's schema. String
// values are converted to the declared types; defaults fill in missing
// optional arguments. The returned mapping is ready to send.
func (m *Manager) Validate(command string, args map[string]string) (map[string]any, error) {
	schema, ok := m.schemas[command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", command)
	}

	out := make(map[string]any)
	for name, as := range schema.Arguments {
		raw, present := args[name]
		if !present {
			if as.Required {
				return nil, fmt.Errorf("missing required argument: %s", name)
			}
			if as.Default != nil {
				out[name] = as.Default
			}
			continue
		}
		v, err := validateValue(raw, as, name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	for name, os := range schema.Options {
		raw, present := args[name]
		if !present {
			continue
		}
		v, err := validateValue(raw, os, name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// Help renders a plain-text description of the command.
func (m *Manager) Help(command string) string {
	schema, ok := m.schemas[command]
	if !ok {
		return fmt.Sprintf("Unknown command: %s", command)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\nDescription: %s\n", command, schema.Description)
	if len(schema.Arguments) > 0 {
		b.WriteString("\nArguments:\n")
		for _, name := range sortedKeys(schema.Arguments) {
			as := schema.Arguments[name]
			fmt.Fprintf(&b, "  %s: %s (type: %s, required: %t)\n", name, as.Description, as.Type, as.Required)
		}
	}
	if len(schema.Options) > 0 {
		b.WriteString("\nOptions:\n")
		for _, name := range sortedKeys(schema.Options) {
			os := schema.Options[name]
			fmt.Fprintf(&b, "  --%s: %s (type: %s)\n", name, os.Description, os.Type)
		}
	}
	if len(schema.Examples) > 0 {
		b.WriteString("\nExamples:\n")
		for _, ex := range schema.Examples {
			fmt.Fprintf(&b, "  %s\n", ex)
		}
	}
	return b.String()
}

// validateValue converts a raw CLI string to the declared type and
// applies the schema's constraints.
func validateValue(raw string, as ArgumentSchema, name string) (any, error) {
	var value any = raw

	switch as.Type {
	case TypeInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: not an integer: %q", name, raw)
		}
		value = n
	case TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: not a number: %q", name, raw)
		}
		value = f
	case TypeBoolean:
		value = strings.EqualFold(raw, "true")
	case TypeJSON, TypeList, TypeDict:
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("invalid value for %s: not valid JSON: %v", name, err)
		}
		value = parsed
	}

	if len(as.Choices) > 0 && !containsChoice(as.Choices, value) {
		return nil, fmt.Errorf("invalid value for %s: must be one of %v", name, as.Choices)
	}

	if as.Min != nil || as.Max != nil {
		num, ok := asFloat(value)
		if ok {
			if as.Min != nil && num < *as.Min {
				return nil, fmt.Errorf("value for %s must be >= %v", name, *as.Min)
			}
			if as.Max != nil && num > *as.Max {
				return nil, fmt.Errorf("value for %s must be <= %v", name, *as.Max)
			}
		}
	}

	if as.Pattern != "" {
		if s, ok := value.(string); ok {
			// Patterns are anchored at the start of the value.
			re, err := regexp.Compile("^(?:" + as.Pattern + ")")
			if err != nil {
				return nil, fmt.Errorf("invalid pattern for %s: %v", name, err)
			}
			if !re.MatchString(s) {
				return nil, fmt.Errorf("value for %s does not match pattern: %s", name, as.Pattern)
			}
		}
	}

	return value, nil
}

func containsChoice(choices []any, value any) bool {
	for _, c := range choices {
		if choiceEqual(c, value) {
			return true
		}
	}
	return false
}

// choiceEqual compares a schema choice (decoded from JSON, so numbers
// are float64) to a converted value (which may be int).
func choiceEqual(choice, value any) bool {
	if choice == value {
		return true
	}
	cf, cok := asFloat(choice)
	vf, vok := asFloat(value)
	return cok && vok && cf == vf
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortedKeys(m map[string]ArgumentSchema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
