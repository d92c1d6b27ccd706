package commands

import (
	"context"
	"fmt"
	"strings"
)

// ListCommand lists tools, functions, service registrations, or pools
type ListCommand struct {
	*BaseCommand
}

// NewListCommand creates a new list command
func NewListCommand(client ClientInterface, output OutputLogger, transport TransportInterface) *ListCommand {
	return &ListCommand{
		BaseCommand: NewBaseCommand(client, output, transport),
	}
}

// Execute lists the requested target
func (l *ListCommand) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", l.Usage())
	}

	target := strings.ToLower(args[0])
	switch target {
	case "tools":
		if err := l.client.RefreshToolCache(ctx); err != nil {
			l.output.Error("Failed to refresh tool cache: %v", err)
			// Continue with the cached tools if refresh fails
		}
		l.output.OutputLine("%s", l.getFormatters().FormatToolsList(l.client.GetToolCache()))
		return nil

	case "functions":
		if err := l.client.RefreshFunctionCache(ctx); err != nil {
			l.output.Error("Failed to refresh function catalog: %v", err)
			// Continue with the cached catalog if refresh fails
		}
		l.output.OutputLine("%s", l.getFormatters().FormatFunctionsList(l.client.GetFunctionCache()))
		return nil

	case "services":
		return l.listServices(ctx)

	case "pools":
		return l.listPools(ctx)

	default:
		return l.validateTarget(target, []string{"tools", "functions", "services", "pools"})
	}
}

// listServices fetches and displays the syncer's registration report
func (l *ListCommand) listServices(ctx context.Context) error {
	result, err := l.client.CallToolJSON(ctx, "service_registrations", map[string]interface{}{})
	if err != nil {
		l.output.Error("Failed to list service registrations: %v", err)
		return nil
	}

	report, ok := result.([]interface{})
	if !ok {
		l.output.OutputLine("%v", result)
		return nil
	}

	l.output.OutputLine("%s", l.getFormatters().FormatRegistrations(report))
	return nil
}

// listPools fetches and displays worker pool occupancy
func (l *ListCommand) listPools(ctx context.Context) error {
	result, err := l.client.CallToolJSON(ctx, "pool_status", map[string]interface{}{})
	if err != nil {
		l.output.Error("Failed to fetch pool status: %v", err)
		return nil
	}

	pools, ok := result.(map[string]interface{})
	if !ok {
		l.output.OutputLine("%v", result)
		return nil
	}

	l.output.OutputLine("%s", l.getFormatters().FormatPoolStatus(pools))
	return nil
}

// Usage returns the usage string
func (l *ListCommand) Usage() string {
	return "list <tools|functions|services|pools>"
}

// Description returns the command description
func (l *ListCommand) Description() string {
	return "List gateway tools, registered functions, service registrations, or pool status"
}

// Completions returns possible completions
func (l *ListCommand) Completions(input string) []string {
	return []string{"tools", "functions", "services", "pools"}
}

// Aliases returns command aliases
func (l *ListCommand) Aliases() []string {
	return []string{"ls"}
}
