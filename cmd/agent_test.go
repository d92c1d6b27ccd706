package cmd

import (
	"strings"
	"testing"

	"switchboard/internal/agent"
)

func TestAgentCommand(t *testing.T) {
	if agentCmd.Use != "agent" {
		t.Errorf("Expected Use to be 'agent', got %s", agentCmd.Use)
	}

	if agentCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if agentCmd.RunE == nil {
		t.Error("Expected RunE function to be set")
	}
}

func TestAgentCommandFlags(t *testing.T) {
	expectedFlags := []string{
		"endpoint",
		"verbose",
		"no-color",
		"json-rpc",
		"repl",
		"transport",
		"config-path",
	}

	for _, name := range expectedFlags {
		if agentCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag %q to be registered", name)
		}
	}
}

func TestAgentTransportDefault(t *testing.T) {
	flag := agentCmd.Flags().Lookup("transport")
	if flag == nil {
		t.Fatal("transport flag not registered")
	}
	if flag.DefValue != string(agent.TransportStreamableHTTP) {
		t.Errorf("transport default = %q, want %q", flag.DefValue, agent.TransportStreamableHTTP)
	}
}

func TestEndpointFromConfig(t *testing.T) {
	logger := agent.NewLogger(false, false, false)

	// A bare temp dir has no config.yaml, so defaults apply.
	endpoint := endpointFromConfig(t.TempDir(), agent.TransportStreamableHTTP, logger)
	if endpoint != "http://localhost:8090/mcp" {
		t.Errorf("endpoint = %q, want default streamable-http endpoint", endpoint)
	}

	endpoint = endpointFromConfig(t.TempDir(), agent.TransportSSE, logger)
	if !strings.HasSuffix(endpoint, "/sse") {
		t.Errorf("endpoint = %q, want /sse suffix for SSE transport", endpoint)
	}
}
