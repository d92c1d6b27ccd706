package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"switchboard/internal/agent"
	"switchboard/internal/config"

	"github.com/spf13/cobra"
)

var (
	agentEndpoint   string
	agentVerbose    bool
	agentNoColor    bool
	agentJSONRPC    bool
	agentREPL       bool
	agentTransport  string
	agentConfigPath string
)

// agentCmd represents the agent command
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "MCP client for the switchboard gateway",
	Long: `The agent command connects to a running switchboard gateway as an MCP
client, logs the JSON-RPC traffic, and shows follow-up responses and
function catalog changes as they are pushed.

The agent command can run in two modes:
1. Normal mode (default): connects, lists the gateway tools, and prints
   notifications until interrupted
2. REPL mode (--repl): provides an interactive interface to inspect
   function definitions and execute requests

Transport options:
- streamable-http (default): HTTP transport with notification support,
  matches 'switchboard serve' defaults
- sse: Server-Sent Events transport with real-time notifications

In REPL mode, you can:
- List the gateway's tools and registered functions
- Describe a tool or function definition
- Execute requests with JSON arguments and watch async and stream
  responses arrive
- Stop running stream sessions
- Toggle notification display

By default the agent connects to the endpoint derived from your
switchboard configuration file. Override it with --endpoint.

Note: The gateway must be running (use 'switchboard serve') before using
this command.`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)

	agentCmd.Flags().StringVar(&agentEndpoint, "endpoint", "", "Gateway MCP endpoint URL (default: from config)")
	agentCmd.Flags().BoolVar(&agentVerbose, "verbose", false, "Enable verbose logging")
	agentCmd.Flags().BoolVar(&agentNoColor, "no-color", false, "Disable colored output")
	agentCmd.Flags().BoolVar(&agentJSONRPC, "json-rpc", false, "Enable full JSON-RPC message logging")
	agentCmd.Flags().BoolVar(&agentREPL, "repl", false, "Start interactive REPL mode")
	agentCmd.Flags().StringVar(&agentTransport, "transport", string(agent.TransportStreamableHTTP), "Transport to use (streamable-http, sse)")
	agentCmd.Flags().StringVar(&agentConfigPath, "config-path", "", "Configuration directory (default: ~/.config/switchboard)")
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger := agent.NewLogger(agentVerbose, !agentNoColor, agentJSONRPC)

	// Handle interrupts gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	// Parse transport type
	var transport agent.TransportType
	switch agentTransport {
	case "sse":
		transport = agent.TransportSSE
	case "streamable-http":
		transport = agent.TransportStreamableHTTP
	default:
		return fmt.Errorf("unsupported transport: %s (supported: streamable-http, sse)", agentTransport)
	}

	endpoint := agentEndpoint
	if endpoint == "" {
		endpoint = endpointFromConfig(agentConfigPath, transport, logger)
	}

	client := agent.NewClient(endpoint, logger, transport)

	if err := connectWithRetry(ctx, client, logger, endpoint, transport); err != nil {
		return err
	}
	defer client.Close()

	if agentREPL {
		repl := agent.NewREPL(client, logger)
		if err := repl.Run(ctx); err != nil {
			return fmt.Errorf("REPL error: %w", err)
		}
		return nil
	}

	// Normal agent mode - print notifications until interrupted
	logger.Info("Waiting for notifications (press Ctrl+C to exit)...")
	return client.ProcessNotifications(ctx)
}

// endpointFromConfig derives the gateway endpoint from the configuration
// file the serve command would load, so agent and serve agree without any
// flags. Falls back to the built-in defaults when loading fails.
func endpointFromConfig(configPath string, transport agent.TransportType, logger *agent.Logger) string {
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		cfg = config.GetDefaultConfig()
		logger.Info("Warning: Could not load configuration (%v), using defaults", err)
	}

	if transport == agent.TransportSSE {
		return fmt.Sprintf("http://%s:%d/sse", cfg.Server.Host, cfg.Server.Port)
	}
	return fmt.Sprintf("http://%s:%d/mcp", cfg.Server.Host, cfg.Server.Port)
}

// connectWithRetry attempts to connect to the gateway with retry logic
func connectWithRetry(ctx context.Context, client *agent.Client, logger *agent.Logger, endpoint string, transport agent.TransportType) error {
	const maxRetries = 3

	for attempt := 0; attempt < maxRetries; attempt++ {
		// Don't wait on the first attempt
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}

		logger.Info("Connecting to gateway at: %s using %s transport (attempt %d/%d)", endpoint, transport, attempt+1, maxRetries)

		err := client.Connect(ctx)
		if err == nil {
			// Connection successful, now try to initialize
			if err := client.InitializeAndLoadData(ctx); err != nil {
				if attempt < maxRetries-1 {
					logger.Info("Initialization failed, retrying: %v", err)
					continue
				}
				return fmt.Errorf("failed to load initial data: %w", err)
			}
			return nil
		}

		if attempt < maxRetries-1 {
			logger.Info("Connection attempt %d failed, retrying: %v", attempt+1, err)
			continue
		}

		return fmt.Errorf("failed to connect to gateway: %w", err)
	}

	return fmt.Errorf("failed to connect to gateway after %d attempts", maxRetries)
}
