package config

import "switchboard/internal/gateway"

// Config is the top-level configuration structure for switchboard.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gateway GatewayConfig `yaml:"gateway"`
	Sync    SyncConfig    `yaml:"sync"`
}

const (
	// TransportStreamableHTTP is the streamable HTTP transport.
	TransportStreamableHTTP = "streamable-http"
	// TransportSSE is the Server-Sent Events transport.
	TransportSSE = "sse"
	// TransportStdio is the standard I/O transport.
	TransportStdio = "stdio"
)

// ServerConfig defines how the operator endpoint is exposed.
type ServerConfig struct {
	Port      int    `yaml:"port,omitempty"`      // Port for the operator endpoint (default: 8090)
	Host      string `yaml:"host,omitempty"`      // Host to bind to (default: localhost)
	Transport string `yaml:"transport,omitempty"` // Transport to use (default: streamable-http)
}

// PoolConfig sizes one worker pool.
type PoolConfig struct {
	Size     int `yaml:"size,omitempty"`     // Number of workers
	MaxQueue int `yaml:"maxQueue,omitempty"` // Tasks allowed to wait when every worker is busy
}

// GatewayConfig tunes request execution.
type GatewayConfig struct {
	VerboseErrors bool       `yaml:"verboseErrors,omitempty"` // Deliver internal error detail to callers
	FunctionsDir  string     `yaml:"functionsDir,omitempty"`  // Function definition directory (default: <configPath>/functions)
	AsyncPool     PoolConfig `yaml:"asyncPool,omitempty"`     // Workers for async and none mode calls
	StreamPool    PoolConfig `yaml:"streamPool,omitempty"`    // Workers hosting stream sessions
}

// SyncConfig drives the registry syncer.
type SyncConfig struct {
	Interval    int                           `yaml:"interval,omitempty"`    // Seconds between sync passes (default: 30)
	PullTimeout int                           `yaml:"pullTimeout,omitempty"` // Seconds allowed per node pull (default: 5)
	Services    []gateway.ServiceRegistration `yaml:"services,omitempty"`    // Services to keep synchronized at startup
}
