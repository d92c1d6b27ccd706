package commands

import (
	"context"
	"strings"
)

// HelpCommand shows available commands and usage information
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command
func NewHelpCommand(client ClientInterface, output OutputLogger, transport TransportInterface, registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(client, output, transport),
		registry:    registry,
	}
}

// Execute shows help information
func (h *HelpCommand) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		h.showGeneralHelp()
		return nil
	}

	commandName := strings.ToLower(args[0])
	if commandName == "?" {
		commandName = "help"
	}

	command, exists := h.registry.Get(commandName)
	if !exists {
		h.output.Error("Unknown command: %s", commandName)
		h.output.OutputLine("Use 'help' to see all available commands.")
		return nil
	}

	h.showCommandHelp(commandName, command)
	return nil
}

// showGeneralHelp displays the general help message
func (h *HelpCommand) showGeneralHelp() {
	h.output.OutputLine("Available commands:")
	h.output.OutputLine("  help, ?                        - Show this help message")
	h.output.OutputLine("  list tools                     - List the gateway's MCP tools")
	h.output.OutputLine("  list functions                 - List registered functions by service")
	h.output.OutputLine("  list services                  - List service registrations and sync status")
	h.output.OutputLine("  list pools                     - Show worker pool occupancy")
	h.output.OutputLine("  describe tool <name>           - Show a tool's input schema")
	h.output.OutputLine("  describe function <svc> <type> - Show a registered function's configuration")
	h.output.OutputLine("  exec <svc> <type> [key=val]    - Execute a request through the gateway")
	h.output.OutputLine("  call <tool> {json}             - Call any gateway tool with JSON arguments")
	h.output.OutputLine("  stop <session-id>              - Stop a running stream session")
	h.output.OutputLine("  sync                           - Run a registry sync pass now")
	h.output.OutputLine("  notifications <on|off>         - Enable/disable notification display")
	h.output.OutputLine("  exit, quit                     - Exit the REPL")
	h.output.OutputLine("")
	h.output.OutputLine("Keyboard shortcuts:")
	h.output.OutputLine("  TAB                            - Auto-complete commands and arguments")
	h.output.OutputLine("  ↑/↓ (arrow keys)               - Navigate command history")
	h.output.OutputLine("  Ctrl+R                         - Search command history")
	h.output.OutputLine("  Ctrl+C                         - Cancel current line")
	h.output.OutputLine("  Ctrl+D                         - Exit REPL")
	h.output.OutputLine("")
	h.output.OutputLine("Examples:")
	h.output.OutputLine("  exec billing charge user_id=42 amount=9.99")
	h.output.OutputLine("  exec market subscribe_ticks symbol=BTCUSD")
	h.output.OutputLine("  describe function billing charge")
	h.output.OutputLine("  call function_get {\"service\": \"billing\", \"request_type\": \"charge\"}")
	h.output.OutputLine("  stop 7f2c9a3e-1b4d-4c8a-9f6e-2d5b8c1a0e43")
	h.output.OutputLine("")
	h.output.OutputLine("Async and stream results arrive as notifications once the request is")
	h.output.OutputLine("acknowledged; match them to your request by request_id.")
}

// showCommandHelp displays help for a specific command
func (h *HelpCommand) showCommandHelp(commandName string, cmd Command) {
	h.output.OutputLine("Command: %s", commandName)
	h.output.OutputLine("Description: %s", cmd.Description())
	h.output.OutputLine("Usage: %s", cmd.Usage())

	aliases := cmd.Aliases()
	if len(aliases) > 0 {
		h.output.OutputLine("Aliases: %v", aliases)
	}
}

// Usage returns the usage string
func (h *HelpCommand) Usage() string {
	return "help [command]"
}

// Description returns the command description
func (h *HelpCommand) Description() string {
	return "Show help information for commands"
}

// Completions returns possible completions
func (h *HelpCommand) Completions(input string) []string {
	return h.registry.AllCompletions()
}

// Aliases returns command aliases
func (h *HelpCommand) Aliases() []string {
	return []string{"?"}
}
