// Package config provides configuration management for switchboard.
//
// This package implements a simple configuration system that loads
// configuration from a single directory. The default configuration
// directory is ~/.config/switchboard, but users can specify a custom
// directory using the --config-path flag in commands.
//
// # Configuration Directory
//
// Configuration is loaded from a single directory containing:
//   - config.yaml (main configuration file)
//   - functions/ (function definition files, watched at runtime)
//
// Default location: ~/.config/switchboard
// Custom location: Specified via --config-path flag
//
// # Configuration Structure
//
// The configuration file uses YAML format with the following sections:
//
//	server:
//	  port: 8090                     # Port for the operator endpoint (default: 8090)
//	  host: "localhost"              # Host to bind to (default: localhost)
//	  transport: "streamable-http"   # Transport to use (default: streamable-http)
//
//	gateway:
//	  verboseErrors: false           # Deliver internal error detail to callers
//	  functionsDir: "functions"      # Function definition directory, relative paths anchor at the config directory
//	  asyncPool:
//	    size: 16                     # Async workers (default: 16)
//	    maxQueue: 64                 # Queued async tasks (default: 64)
//	  streamPool:
//	    size: 8                      # Stream workers (default: 8)
//	    maxQueue: 32                 # Queued stream starts (default: 32)
//
//	sync:
//	  interval: 30                   # Seconds between sync passes (default: 30)
//	  pullTimeout: 5                 # Seconds allowed per node pull (default: 5)
//	  services:
//	    - service: billing
//	      nodes: ["10.0.0.5:9000"]
//	      accessor:
//	        module: billing
//	        function: list_functions
//
// Values absent from the file keep their defaults; the file only has to
// name what it changes.
//
// # Usage Examples
//
//	// Load configuration from default location
//	cfg, err := config.LoadConfig(config.GetDefaultConfigPathOrPanic())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Access server configuration
//	fmt.Printf("Listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
package config
