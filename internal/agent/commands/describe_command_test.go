package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeCommandUsage(t *testing.T) {
	cmd := NewDescribeCommand(&mockClient{}, &mockOutput{}, &mockTransport{})

	err := cmd.Execute(context.Background(), []string{"tool"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "usage:")
}

func TestDescribeCommandTool(t *testing.T) {
	client := &mockClient{
		tools: []mcp.Tool{{Name: "gateway_execute", Description: "Execute a function"}},
	}
	output := &mockOutput{}
	cmd := NewDescribeCommand(client, output, &mockTransport{})

	err := cmd.Execute(context.Background(), []string{"tool", "gateway_execute"})
	require.NoError(t, err)
	assert.Contains(t, output.all(), "detail:gateway_execute")
}

func TestDescribeCommandToolNotFound(t *testing.T) {
	client := &mockClient{tools: []mcp.Tool{{Name: "gateway_execute"}}}
	output := &mockOutput{}
	cmd := NewDescribeCommand(client, output, &mockTransport{})

	err := cmd.Execute(context.Background(), []string{"tool", "nonexistent"})
	require.NoError(t, err)
	assert.Contains(t, output.all(), "ERROR: Tool not found: nonexistent")
}

func TestDescribeCommandFunction(t *testing.T) {
	client := &mockClient{
		callToolResult: textResult(`{"service": "billing", "requestType": "charge"}`),
	}
	output := &mockOutput{}
	cmd := NewDescribeCommand(client, output, &mockTransport{})

	err := cmd.Execute(context.Background(), []string{"function", "billing", "charge"})
	require.NoError(t, err)

	assert.Equal(t, "function_get", client.lastToolName)
	assert.Equal(t, "billing", client.lastToolArgs["service"])
	assert.Equal(t, "charge", client.lastToolArgs["request_type"])
	assert.Contains(t, output.all(), "Function billing/charge:")
	assert.Contains(t, output.all(), `"requestType": "charge"`)
}

func TestDescribeCommandFunctionSlashForm(t *testing.T) {
	client := &mockClient{callToolResult: textResult(`{}`)}
	output := &mockOutput{}
	cmd := NewDescribeCommand(client, output, &mockTransport{})

	err := cmd.Execute(context.Background(), []string{"function", "market/subscribe_ticks"})
	require.NoError(t, err)

	assert.Equal(t, "function_get", client.lastToolName)
	assert.Equal(t, "market", client.lastToolArgs["service"])
	assert.Equal(t, "subscribe_ticks", client.lastToolArgs["request_type"])
}

func TestDescribeCommandFunctionFetchFailure(t *testing.T) {
	client := &mockClient{callToolError: errors.New("no such function")}
	output := &mockOutput{}
	cmd := NewDescribeCommand(client, output, &mockTransport{})

	err := cmd.Execute(context.Background(), []string{"function", "billing", "refund"})
	require.NoError(t, err)
	assert.Contains(t, output.all(), "ERROR: Failed to fetch function billing/refund")
}

func TestDescribeCommandCompletions(t *testing.T) {
	client := &mockClient{
		tools:     []mcp.Tool{{Name: "gateway_execute"}, {Name: "sync_now"}},
		functions: map[string][]string{"billing": {"charge", "refund"}},
	}
	cmd := NewDescribeCommand(client, &mockOutput{}, &mockTransport{})

	assert.Equal(t, []string{"tool", "function"}, cmd.Completions("describe"))
	assert.Equal(t, []string{"gateway_execute", "sync_now"}, cmd.Completions("describe tool"))
	assert.Equal(t, []string{"billing"}, cmd.Completions("describe function"))
	assert.Equal(t, []string{"charge", "refund"}, cmd.Completions("describe function billing"))
}
