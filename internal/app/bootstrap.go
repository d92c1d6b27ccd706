package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"switchboard/internal/config"
	"switchboard/internal/invoker"
	"switchboard/pkg/logging"
)

// Application bundles the configuration and wired components of one
// gateway process.
type Application struct {
	config     *Config
	components *Components
}

// NewApplication creates and initializes a new application instance. It
// performs the complete bootstrap sequence:
//
//  1. Configures logging based on the debug and silent flags
//  2. Loads and validates the gateway configuration
//  3. Applies command line overrides on top of the loaded file
//  4. Constructs every component in dependency order
//
// Configuration failures are returned as *ConfigError so the CLI can map
// them to a dedicated exit code. Nothing is started yet; call Run.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForCLI(appLogLevel, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
		return nil, &ConfigError{Err: fmt.Errorf("failed to load configuration from %s: %w", configPath, err)}
	}
	applyOverrides(&loaded, cfg)
	cfg.Loaded = &loaded

	// The stdio transport owns stdout for the protocol stream, so logs
	// move to stderr once the effective transport is known.
	if !cfg.Silent && loaded.Server.Transport == config.TransportStdio {
		logging.InitForCLI(appLogLevel, os.Stderr)
	}

	components, err := buildComponents(loaded)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize components")
		return nil, &ConfigError{Err: err}
	}

	return &Application{
		config:     cfg,
		components: components,
	}, nil
}

// applyOverrides folds command line overrides into the loaded
// configuration. Only explicitly set flags override the file; the
// verbose-errors flag can force detail on but never hides what the file
// enabled.
func applyOverrides(loaded *config.Config, cfg *Config) {
	if cfg.Transport != "" {
		loaded.Server.Transport = cfg.Transport
	}
	if cfg.Host != "" {
		loaded.Server.Host = cfg.Host
	}
	if cfg.Port != 0 {
		loaded.Server.Port = cfg.Port
	}
	if cfg.VerboseErrors {
		loaded.Gateway.VerboseErrors = true
	}
}

// RegisterLocalFunction installs an in-process target function. Embedders
// call this between NewApplication and Run to provide node accessors and
// locally handled request types.
func (a *Application) RegisterLocalFunction(module, function string, fn invoker.Func) {
	a.components.Local.Register(module, function, fn)
}

// Endpoint returns the URL clients use to reach the gateway.
func (a *Application) Endpoint() string {
	return a.components.Server.GetEndpoint()
}

// Run executes the application until ctx is cancelled or a termination
// signal arrives, then shuts everything down. It blocks for the lifetime
// of the process.
func (a *Application) Run(ctx context.Context) error {
	return a.components.Run(ctx)
}
