package commands

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// ExecCommand executes a request against a registered function through the
// gateway_execute tool. Arguments are given as key=value pairs with JSON
// type coercion, and a request_id is generated for correlating async and
// stream follow-ups.
type ExecCommand struct {
	*BaseCommand
}

// NewExecCommand creates a new exec command
func NewExecCommand(client ClientInterface, output OutputLogger, transport TransportInterface) *ExecCommand {
	return &ExecCommand{
		BaseCommand: NewBaseCommand(client, output, transport),
	}
}

// Execute runs a request through the gateway
func (e *ExecCommand) Execute(ctx context.Context, args []string) error {
	parsed, err := e.parseArgs(args, 2, e.Usage())
	if err != nil {
		return err
	}

	service := parsed[0]
	requestType := parsed[1]
	requestArgs := parseKeyValueArgs(parsed[2:], e.output)
	requestID := uuid.New().String()

	toolArgs := map[string]interface{}{
		"service":      service,
		"request_type": requestType,
		"request_id":   requestID,
	}
	if len(requestArgs) > 0 {
		toolArgs["args"] = requestArgs
	}

	e.output.OutputLine("Request ID: %s", requestID)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Executing " + service + "/" + requestType + "..."
	s.Start()

	result, err := e.client.CallTool(ctx, "gateway_execute", toolArgs)
	s.Stop()

	if err != nil {
		e.output.Error("Request failed: %v", err)
		return nil
	}

	envelope := firstText(result)
	if result.IsError {
		e.output.OutputLine("Request rejected:")
		e.output.OutputLine("%s", envelope)
		return nil
	}

	e.output.OutputLine("%s", envelope)
	e.printFollowUpHint(envelope)
	return nil
}

// printFollowUpHint tells the user what to expect after an acknowledgment
func (e *ExecCommand) printFollowUpHint(envelope string) {
	var resp struct {
		Async   bool `json:"async"`
		HasMore bool `json:"has_more"`
		Result  struct {
			SessionID string `json:"session_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(envelope), &resp); err != nil {
		return
	}

	switch {
	case resp.HasMore && resp.Result.SessionID != "":
		e.output.Info("Stream started; results arrive as notifications. Stop it with: stop %s", resp.Result.SessionID)
	case resp.Async:
		e.output.Info("Request accepted; the result arrives as a notification")
	}

	if (resp.Async || resp.HasMore) && !e.transport.SupportsNotifications() {
		e.output.Info("Note: current transport does not deliver notifications")
	}
}

// firstText extracts the first text content from a tool result
func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			return textContent.Text
		}
	}
	return ""
}

// Usage returns the usage string
func (e *ExecCommand) Usage() string {
	return "exec <service> <request_type> [key=value ...]"
}

// Description returns the command description
func (e *ExecCommand) Description() string {
	return "Execute a request against a registered function"
}

// Completions returns possible completions
func (e *ExecCommand) Completions(input string) []string {
	parts := strings.Fields(input)
	if len(parts) >= 2 {
		return e.getRequestTypeCompletions(parts[1])
	}
	return e.getServiceCompletions()
}

// Aliases returns command aliases
func (e *ExecCommand) Aliases() []string {
	return []string{"x"}
}
