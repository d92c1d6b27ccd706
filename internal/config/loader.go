package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"switchboard/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir    = ".config/switchboard"
	configFileName   = "config.yaml"
	functionsDirName = "functions"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from a single specified directory.
// The directory should contain config.yaml and the function definition
// directory. A missing config.yaml yields the defaults; a malformed or
// out-of-range one is an error.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			config.Gateway.FunctionsDir = resolveFunctionsDir(configPath, config.Gateway.FunctionsDir)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration in %s: %w", configFilePath, err)
	}

	config.Gateway.FunctionsDir = resolveFunctionsDir(configPath, config.Gateway.FunctionsDir)
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// resolveFunctionsDir anchors the function definition directory at the
// config directory. Empty selects <configPath>/functions; relative paths
// are joined onto configPath; absolute paths pass through.
func resolveFunctionsDir(configPath, dir string) string {
	if dir == "" {
		return filepath.Join(configPath, functionsDirName)
	}
	if !filepath.IsAbs(dir) {
		return filepath.Join(configPath, dir)
	}
	return dir
}
