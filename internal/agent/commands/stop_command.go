package commands

import (
	"context"
)

// StopCommand stops a running stream session
type StopCommand struct {
	*BaseCommand
}

// NewStopCommand creates a new stop command
func NewStopCommand(client ClientInterface, output OutputLogger, transport TransportInterface) *StopCommand {
	return &StopCommand{
		BaseCommand: NewBaseCommand(client, output, transport),
	}
}

// Execute stops the stream session with the given handle
func (s *StopCommand) Execute(ctx context.Context, args []string) error {
	parsed, err := s.parseArgs(args, 1, s.Usage())
	if err != nil {
		return err
	}

	sessionID := parsed[0]
	result, err := s.client.CallToolSimple(ctx, "stream_stop", map[string]interface{}{
		"session_id": sessionID,
	})
	if err != nil {
		s.output.Error("Failed to stop session %s: %v", sessionID, err)
		return nil
	}

	s.output.Success("%s", result)
	return nil
}

// Usage returns the usage string
func (s *StopCommand) Usage() string {
	return "stop <session-id>"
}

// Description returns the command description
func (s *StopCommand) Description() string {
	return "Stop a running stream session"
}

// Completions returns possible completions
func (s *StopCommand) Completions(input string) []string {
	return []string{}
}

// Aliases returns command aliases
func (s *StopCommand) Aliases() []string {
	return []string{"abort"}
}
