package commands

import (
	"context"
	"fmt"
	"strings"
)

// NotificationsCommand toggles notification display
type NotificationsCommand struct {
	*BaseCommand
}

// NewNotificationsCommand creates a new notifications command
func NewNotificationsCommand(client ClientInterface, output OutputLogger, transport TransportInterface) *NotificationsCommand {
	return &NotificationsCommand{
		BaseCommand: NewBaseCommand(client, output, transport),
	}
}

// Execute enables or disables notification display
func (n *NotificationsCommand) Execute(ctx context.Context, args []string) error {
	parsed, err := n.parseArgs(args, 1, n.Usage())
	if err != nil {
		return err
	}

	action := strings.ToLower(parsed[0])
	switch action {
	case "on", "enable", "true":
		if !n.transport.SupportsNotifications() {
			n.output.Error("Notifications are not supported with the current transport.")
			return nil
		}
		n.client.SetNotificationsEnabled(true)
		n.output.Success("Notifications enabled")
	case "off", "disable", "false":
		n.client.SetNotificationsEnabled(false)
		n.output.Success("Notifications disabled")
	default:
		return fmt.Errorf("invalid action: %s. Use 'on' or 'off'", action)
	}

	return nil
}

// Usage returns the usage string
func (n *NotificationsCommand) Usage() string {
	return "notifications <on|off>"
}

// Description returns the command description
func (n *NotificationsCommand) Description() string {
	return "Enable or disable notification display"
}

// Completions returns possible completions
func (n *NotificationsCommand) Completions(input string) []string {
	return []string{"on", "off"}
}

// Aliases returns command aliases
func (n *NotificationsCommand) Aliases() []string {
	return []string{"notify"}
}
