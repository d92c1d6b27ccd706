package app

import (
	"switchboard/internal/config"
)

// Config holds the application configuration assembled from command line
// flags. It is distinct from config.Config: this struct decides how the
// process itself runs (logging, config location, flag overrides), while
// config.Config is what was loaded from disk.
type Config struct {
	// Debug enables debug-level logging.
	Debug bool

	// Silent discards all log output.
	Silent bool

	// ConfigPath is the directory holding config.yaml and the function
	// definition directory. Empty selects the default user path.
	ConfigPath string

	// Transport, Host and Port override the loaded server settings when
	// set, so 'switchboard serve --port 9000' works without editing
	// config.yaml.
	Transport string
	Host      string
	Port      int

	// VerboseErrors forces internal error detail into error responses.
	// When false the file setting still applies.
	VerboseErrors bool

	// Loaded is the effective configuration after file load and flag
	// overrides. Populated by NewApplication.
	Loaded *config.Config
}

// NewConfig creates a new application configuration from the basic flags.
// Override fields are set directly by the caller when the corresponding
// flags were given.
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}

// ConfigError marks a failure to load or validate configuration so the
// CLI can map it to a dedicated exit code.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
