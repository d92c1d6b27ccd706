package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ClientInterface defines what commands need from the gateway client:
// access to the cached tool surface and function catalog, tool execution,
// and the shared formatters.
type ClientInterface interface {
	GetToolCache() []mcp.Tool
	GetFunctionCache() map[string][]string
	RefreshToolCache(ctx context.Context) error
	RefreshFunctionCache(ctx context.Context) error

	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
	CallToolSimple(ctx context.Context, name string, args map[string]interface{}) (string, error)
	CallToolJSON(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)

	SetNotificationsEnabled(enabled bool)

	// GetFormatters returns the concrete formatters; commands cast it to
	// FormatterInterface.
	GetFormatters() interface{}
}

// FormatterInterface defines the formatting operations commands use.
type FormatterInterface interface {
	FormatToolsList(tools []mcp.Tool) string
	FormatToolDetail(tool mcp.Tool) string
	FormatFunctionsList(functions map[string][]string) string
	FormatRegistrations(report []interface{}) string
	FormatPoolStatus(pools map[string]interface{}) string

	FindTool(tools []mcp.Tool, name string) *mcp.Tool
}

// TransportInterface lets commands adapt to transport capabilities.
type TransportInterface interface {
	SupportsNotifications() bool
}

// BaseCommand provides the shared dependencies and parsing helpers for
// REPL commands.
type BaseCommand struct {
	client    ClientInterface
	output    OutputLogger
	transport TransportInterface
}

// NewBaseCommand creates a new base command with the specified dependencies.
func NewBaseCommand(client ClientInterface, output OutputLogger, transport TransportInterface) *BaseCommand {
	return &BaseCommand{
		client:    client,
		output:    output,
		transport: transport,
	}
}

// parseArgs validates arguments against a minimum count, returning a
// usage error otherwise.
func (b *BaseCommand) parseArgs(args []string, minArgs int, usage string) ([]string, error) {
	if len(args) < minArgs {
		return nil, fmt.Errorf("usage: %s", usage)
	}
	return args, nil
}

// joinArgsFrom joins arguments starting at index into a single string.
// Used by commands whose trailing argument is free-form JSON.
func (b *BaseCommand) joinArgsFrom(args []string, index int) string {
	if index >= len(args) {
		return ""
	}
	return strings.Join(args[index:], " ")
}

// validateTarget checks a target type against the allowed values.
func (b *BaseCommand) validateTarget(target string, validTargets []string) error {
	for _, valid := range validTargets {
		if strings.EqualFold(target, valid) {
			return nil
		}
	}
	return fmt.Errorf("unknown target: %s. Valid targets: %s", target, strings.Join(validTargets, ", "))
}

// getToolCompletions returns tool name completions from the client cache.
func (b *BaseCommand) getToolCompletions() []string {
	tools := b.client.GetToolCache()
	var completions []string
	for _, tool := range tools {
		completions = append(completions, tool.Name)
	}
	return completions
}

// getServiceCompletions returns service name completions from the cached
// function catalog.
func (b *BaseCommand) getServiceCompletions() []string {
	functions := b.client.GetFunctionCache()
	var completions []string
	for service := range functions {
		completions = append(completions, service)
	}
	sort.Strings(completions)
	return completions
}

// getRequestTypeCompletions returns request type completions for one service.
func (b *BaseCommand) getRequestTypeCompletions(service string) []string {
	functions := b.client.GetFunctionCache()
	requestTypes := append([]string(nil), functions[service]...)
	sort.Strings(requestTypes)
	return requestTypes
}

// getFormatters returns the formatters cast to the command-facing interface.
func (b *BaseCommand) getFormatters() FormatterInterface {
	return b.client.GetFormatters().(FormatterInterface)
}

// stripQuotes removes surrounding single or double quotes from a string.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// parseKeyValueArgs parses key=value arguments into a map, attempting JSON
// type coercion on each value so numbers, booleans, arrays and objects
// arrive typed. Arguments without '=' are skipped with a debug message.
func parseKeyValueArgs(args []string, output OutputLogger) map[string]interface{} {
	params := make(map[string]interface{})

	for _, arg := range args {
		if !strings.Contains(arg, "=") {
			if output != nil {
				output.Debug("Ignoring argument without '=': %s", arg)
			}
			continue
		}

		parts := strings.SplitN(arg, "=", 2)
		key := parts[0]
		value := stripQuotes(parts[1])

		var jsonValue interface{}
		if err := json.Unmarshal([]byte(value), &jsonValue); err == nil {
			params[key] = jsonValue
		} else {
			params[key] = value
		}
	}

	return params
}

// findToolByName looks up a tool by name from a cache slice.
func findToolByName(tools []mcp.Tool, name string) *mcp.Tool {
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i]
		}
	}
	return nil
}
