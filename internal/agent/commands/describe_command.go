package commands

import (
	"context"
	"strings"
)

// DescribeCommand shows detailed information about tools or functions
type DescribeCommand struct {
	*BaseCommand
}

// NewDescribeCommand creates a new describe command
func NewDescribeCommand(client ClientInterface, output OutputLogger, transport TransportInterface) *DescribeCommand {
	return &DescribeCommand{
		BaseCommand: NewBaseCommand(client, output, transport),
	}
}

// Execute describes a tool or a registered function
func (d *DescribeCommand) Execute(ctx context.Context, args []string) error {
	parsed, err := d.parseArgs(args, 2, d.Usage())
	if err != nil {
		return err
	}

	itemType := strings.ToLower(parsed[0])
	switch itemType {
	case "tool":
		return d.describeTool(parsed[1])
	case "function":
		if len(parsed) < 3 {
			// Accept the service/request_type form as a single argument too
			if service, requestType, ok := strings.Cut(parsed[1], "/"); ok {
				return d.describeFunction(ctx, service, requestType)
			}
			d.output.Error("usage: describe function <service> <request_type>")
			return nil
		}
		return d.describeFunction(ctx, parsed[1], parsed[2])
	default:
		return d.validateTarget(itemType, []string{"tool", "function"})
	}
}

// describeTool shows a tool's description and input schema
func (d *DescribeCommand) describeTool(name string) error {
	tools := d.client.GetToolCache()
	tool := d.getFormatters().FindTool(tools, name)
	if tool == nil {
		d.output.Error("Tool not found: %s", name)
		return nil
	}

	d.output.OutputLine("%s", d.getFormatters().FormatToolDetail(*tool))
	return nil
}

// describeFunction fetches and shows one registered function's configuration
func (d *DescribeCommand) describeFunction(ctx context.Context, service, requestType string) error {
	raw, err := d.client.CallToolSimple(ctx, "function_get", map[string]interface{}{
		"service":      service,
		"request_type": requestType,
	})
	if err != nil {
		d.output.Error("Failed to fetch function %s/%s: %v", service, requestType, err)
		return nil
	}

	d.output.OutputLine("Function %s/%s:", service, requestType)
	d.output.OutputLine("%s", raw)
	return nil
}

// Usage returns the usage string
func (d *DescribeCommand) Usage() string {
	return "describe <tool|function> <name> [request_type]"
}

// Description returns the command description
func (d *DescribeCommand) Description() string {
	return "Show detailed information about a tool or a registered function"
}

// Completions returns possible completions
func (d *DescribeCommand) Completions(input string) []string {
	parts := strings.Fields(input)

	if len(parts) <= 1 {
		return []string{"tool", "function"}
	}

	switch strings.ToLower(parts[1]) {
	case "tool":
		return d.getToolCompletions()
	case "function":
		if len(parts) >= 3 {
			return d.getRequestTypeCompletions(parts[2])
		}
		return d.getServiceCompletions()
	}

	return []string{}
}

// Aliases returns command aliases
func (d *DescribeCommand) Aliases() []string {
	return []string{"desc", "info"}
}
