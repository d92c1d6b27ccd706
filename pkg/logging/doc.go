// Package logging provides the structured logging system used by every
// switchboard subsystem.
//
// It is a thin layer over Go's standard slog package that adds a subsystem
// identifier to every entry and exposes printf-style helpers, so call sites
// stay compact:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Registry", "registered %s/%s", service, requestType)
//	logging.Debug("Selector", "hash key %q -> node %s", key, node)
//	logging.Error("Syncer", err, "pull from %s failed", service)
//
// # Log Levels
//
//   - Debug: detailed information for debugging and development
//   - Info: general messages about application operation
//   - Warn: conditions that deserve attention but are handled
//   - Error: failures and exceptional conditions
//
// # Output Modes
//
// InitForCLI emits human-readable text; InitForService emits JSON for
// machine collection. Both filter at the handler level, so entries below
// the configured level cost no allocation.
//
// # Subsystem Organization
//
// Logs are categorized by subsystem name: Bootstrap, Config, Registry,
// Syncer, Selector, Executor, Pool, Stream, Invoker, FileSource, Server,
// Agent. Filtering on these names is the intended way to isolate one
// component's activity in aggregated logs.
//
// # Thread Safety
//
// Safe for concurrent use from multiple goroutines; slog handlers serialize
// writes internally.
package logging
