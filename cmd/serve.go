package cmd

import (
	"context"
	"fmt"

	"switchboard/internal/app"
	"switchboard/internal/config"

	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveSilent suppresses all log output. Combined with the stdio transport
// this keeps the protocol stream clean for embedding in other tools.
var serveSilent bool

// serveConfigPath specifies a custom configuration directory.
// The directory should contain config.yaml and the functions/ directory.
var serveConfigPath string

// serveTransport, serveHost and servePort override the server settings
// from config.yaml when given.
var (
	serveTransport string
	serveHost      string
	servePort      int
)

// serveVerboseErrors exposes internal error detail in error responses.
// Useful in development; keep off in production so callers only learn
// that an internal error occurred, not what failed.
var serveVerboseErrors bool

// serveCmd defines the serve command, the main command of switchboard.
// It starts the gateway: function registry, syncer, worker pools, stream
// sessions and the MCP endpoint.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the switchboard gateway",
	Long: `Starts the switchboard gateway and serves the MCP endpoint.

The gateway loads function definitions from three sources:
  - config.yaml sync registrations (pulled from the services themselves)
  - YAML files in the functions/ directory (watched for changes)
  - runtime registration through the function_add and service_register tools

Requests arrive as gateway_execute tool calls. Each one is validated
against its function definition, gated by the definition's permission
rule, routed to a cluster node or an in-process function, and answered
according to the definition's response mode (sync, async, stream, none).

Configuration:
  switchboard loads configuration from <config-path>/config.yaml,
  defaulting to ~/.config/switchboard. A missing file starts the gateway
  with built-in defaults. Flags override the file.

The process runs until interrupted (Ctrl+C) or terminated.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveSilent, serveConfigPath)
	cfg.Transport = serveTransport
	cfg.Host = serveHost
	cfg.Port = servePort
	cfg.VerboseErrors = serveVerboseErrors

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress all log output")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Configuration directory (default: ~/.config/switchboard)")
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", fmt.Sprintf("Transport for the MCP endpoint: %s, %s or %s (default: from config)",
		config.TransportStreamableHTTP, config.TransportSSE, config.TransportStdio))
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the MCP endpoint to (default: from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port for the MCP endpoint (default: from config)")
	serveCmd.Flags().BoolVar(&serveVerboseErrors, "verbose-errors", false, "Expose internal error detail in error responses")
}
