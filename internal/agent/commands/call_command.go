package commands

import (
	"context"
	"encoding/json"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mark3labs/mcp-go/mcp"
)

// CallCommand executes gateway tools with raw JSON arguments
type CallCommand struct {
	*BaseCommand
}

// NewCallCommand creates a new call command
func NewCallCommand(client ClientInterface, output OutputLogger, transport TransportInterface) *CallCommand {
	return &CallCommand{
		BaseCommand: NewBaseCommand(client, output, transport),
	}
}

// Execute calls a tool with the given arguments
func (c *CallCommand) Execute(ctx context.Context, args []string) error {
	parsed, err := c.parseArgs(args, 1, c.Usage())
	if err != nil {
		return err
	}

	toolName := parsed[0]

	// Parse arguments (default to empty JSON object if not provided)
	var toolArgs map[string]interface{}
	if len(parsed) > 1 {
		argsStr := c.joinArgsFrom(parsed, 1)
		if err := json.Unmarshal([]byte(argsStr), &toolArgs); err != nil {
			c.output.Error("Arguments must be valid JSON")
			c.output.OutputLine("Example: call %s {\"param1\": \"value1\", \"param2\": 123}", toolName)
			return nil
		}
	} else {
		toolArgs = make(map[string]interface{})
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Executing " + toolName + "..."
	s.Start()

	result, err := c.client.CallTool(ctx, toolName, toolArgs)
	s.Stop()

	if err != nil {
		c.output.Error("Tool execution failed: %v", err)
		return nil
	}

	if result.IsError {
		c.output.OutputLine("Tool returned an error:")
		for _, content := range result.Content {
			if textContent, ok := mcp.AsTextContent(content); ok {
				c.output.OutputLine("  %s", textContent.Text)
			}
		}
		return nil
	}

	c.output.OutputLine("Result:")
	for _, content := range result.Content {
		textContent, ok := mcp.AsTextContent(content)
		if !ok {
			c.output.OutputLine("%+v", content)
			continue
		}

		// Re-indent JSON payloads for readability
		var jsonObj interface{}
		if err := json.Unmarshal([]byte(textContent.Text), &jsonObj); err == nil {
			if b, err := json.MarshalIndent(jsonObj, "", "  "); err == nil {
				c.output.OutputLine("%s", string(b))
				continue
			}
		}
		c.output.OutputLine("%s", textContent.Text)
	}

	return nil
}

// Usage returns the usage string
func (c *CallCommand) Usage() string {
	return "call <tool-name> [json-arguments]"
}

// Description returns the command description
func (c *CallCommand) Description() string {
	return "Execute a gateway tool with JSON arguments"
}

// Completions returns possible completions
func (c *CallCommand) Completions(input string) []string {
	return c.getToolCompletions()
}

// Aliases returns command aliases
func (c *CallCommand) Aliases() []string {
	return []string{"run"}
}
