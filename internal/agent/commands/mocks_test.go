package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// mockClient implements ClientInterface and records the last tool call.
type mockClient struct {
	tools          []mcp.Tool
	functions      map[string][]string
	callToolResult *mcp.CallToolResult
	callToolError  error
	refreshError   error

	lastToolName  string
	lastToolArgs  map[string]interface{}
	notifyEnabled *bool
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func (m *mockClient) GetToolCache() []mcp.Tool {
	return m.tools
}

func (m *mockClient) GetFunctionCache() map[string][]string {
	return m.functions
}

func (m *mockClient) RefreshToolCache(ctx context.Context) error {
	return m.refreshError
}

func (m *mockClient) RefreshFunctionCache(ctx context.Context) error {
	return m.refreshError
}

func (m *mockClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	m.lastToolName = name
	m.lastToolArgs = args

	if m.callToolError != nil {
		return nil, m.callToolError
	}
	if m.callToolResult != nil {
		return m.callToolResult, nil
	}
	return textResult(`{"status": "ok"}`), nil
}

func (m *mockClient) CallToolSimple(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	result, err := m.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			if result.IsError {
				return "", fmt.Errorf("tool error: %s", textContent.Text)
			}
			return textContent.Text, nil
		}
	}
	return "", nil
}

func (m *mockClient) CallToolJSON(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	text, err := m.CallToolSimple(ctx, name, args)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text, nil
	}
	return v, nil
}

func (m *mockClient) SetNotificationsEnabled(enabled bool) {
	m.notifyEnabled = &enabled
}

func (m *mockClient) GetFormatters() interface{} {
	return &mockFormatters{}
}

// mockFormatters implements FormatterInterface with markers instead of
// real rendering, so tests can assert which formatter ran.
type mockFormatters struct{}

func (m *mockFormatters) FormatToolsList(tools []mcp.Tool) string {
	return fmt.Sprintf("tools:%d", len(tools))
}

func (m *mockFormatters) FormatToolDetail(tool mcp.Tool) string {
	return "detail:" + tool.Name
}

func (m *mockFormatters) FormatFunctionsList(functions map[string][]string) string {
	return fmt.Sprintf("functions:%d", len(functions))
}

func (m *mockFormatters) FormatRegistrations(report []interface{}) string {
	return fmt.Sprintf("registrations:%d", len(report))
}

func (m *mockFormatters) FormatPoolStatus(pools map[string]interface{}) string {
	return fmt.Sprintf("pools:%d", len(pools))
}

func (m *mockFormatters) FindTool(tools []mcp.Tool, name string) *mcp.Tool {
	return findToolByName(tools, name)
}

// mockOutput implements OutputLogger and collects all messages.
type mockOutput struct {
	lines []string
}

func (m *mockOutput) Output(format string, args ...interface{}) {
	m.lines = append(m.lines, fmt.Sprintf(format, args...))
}

func (m *mockOutput) OutputLine(format string, args ...interface{}) {
	m.lines = append(m.lines, fmt.Sprintf(format, args...))
}

func (m *mockOutput) Info(format string, args ...interface{}) {
	m.lines = append(m.lines, "INFO: "+fmt.Sprintf(format, args...))
}

func (m *mockOutput) Debug(format string, args ...interface{}) {
	m.lines = append(m.lines, "DEBUG: "+fmt.Sprintf(format, args...))
}

func (m *mockOutput) Error(format string, args ...interface{}) {
	m.lines = append(m.lines, "ERROR: "+fmt.Sprintf(format, args...))
}

func (m *mockOutput) Success(format string, args ...interface{}) {
	m.lines = append(m.lines, "SUCCESS: "+fmt.Sprintf(format, args...))
}

func (m *mockOutput) SetVerbose(verbose bool) {}

func (m *mockOutput) all() string {
	return strings.Join(m.lines, "\n")
}

// mockTransport implements TransportInterface.
type mockTransport struct {
	notifications bool
}

func (m *mockTransport) SupportsNotifications() bool {
	return m.notifications
}
