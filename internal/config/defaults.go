package config

// GetDefaultConfig returns the default configuration. Loading starts from
// these values, so a config file only has to name what it changes.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:      8090,
			Host:      "localhost",
			Transport: TransportStreamableHTTP,
		},
		Gateway: GatewayConfig{
			AsyncPool:  PoolConfig{Size: 16, MaxQueue: 64},
			StreamPool: PoolConfig{Size: 8, MaxQueue: 32},
		},
		Sync: SyncConfig{
			Interval:    30,
			PullTimeout: 5,
		},
	}
}
