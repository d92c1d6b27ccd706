package commands

import (
	"context"
	"time"

	"github.com/briandowns/spinner"
)

// SyncCommand triggers an immediate registry sync pass
type SyncCommand struct {
	*BaseCommand
}

// NewSyncCommand creates a new sync command
func NewSyncCommand(client ClientInterface, output OutputLogger, transport TransportInterface) *SyncCommand {
	return &SyncCommand{
		BaseCommand: NewBaseCommand(client, output, transport),
	}
}

// Execute runs a sync pass and displays the resulting registration report
func (s *SyncCommand) Execute(ctx context.Context, args []string) error {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " Syncing service registrations..."
	sp.Start()

	result, err := s.client.CallToolJSON(ctx, "sync_now", map[string]interface{}{})
	sp.Stop()

	if err != nil {
		s.output.Error("Sync failed: %v", err)
		return nil
	}

	report, ok := result.([]interface{})
	if !ok {
		s.output.OutputLine("%v", result)
		return nil
	}

	s.output.OutputLine("%s", s.getFormatters().FormatRegistrations(report))
	return nil
}

// Usage returns the usage string
func (s *SyncCommand) Usage() string {
	return "sync"
}

// Description returns the command description
func (s *SyncCommand) Description() string {
	return "Run a registry sync pass immediately"
}

// Completions returns possible completions
func (s *SyncCommand) Completions(input string) []string {
	return []string{}
}

// Aliases returns command aliases
func (s *SyncCommand) Aliases() []string {
	return []string{}
}
