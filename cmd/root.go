package cmd

import (
	"errors"
	"os"

	"switchboard/internal/app"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands. These follow common conventions so wrapper
// scripts can tell configuration mistakes from runtime failures.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general runtime error.
	ExitCodeError = 1
	// ExitCodeConfigError indicates the configuration could not be loaded
	// or failed validation.
	ExitCodeConfigError = 2
)

// rootCmd represents the base command for the switchboard application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Dynamic API gateway for clustered backend services",
	Long: `switchboard routes typed requests to functions running on backend
cluster nodes or in-process. Function definitions are registered at
runtime, pulled from the services themselves, or loaded from YAML files,
so new request types go live without a gateway restart.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This is called from the main package to inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. It runs the
// root command and maps returned errors to exit codes.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "switchboard version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the exit code based on the error type.
func getExitCode(err error) int {
	var cfgErr *app.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfigError
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
