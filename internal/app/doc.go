// Package app bootstraps and runs the switchboard gateway process.
//
// The package wires together everything the gateway needs and owns the
// process lifecycle. It follows a two-phase pattern:
//
//  1. Bootstrap phase (NewApplication): initialize logging, load and
//     validate configuration, construct every component in dependency
//     order.
//  2. Execution phase (Run): start the long-running components, block
//     until the context is cancelled or a termination signal arrives,
//     then stop everything in reverse order.
//
// # Component wiring
//
// Components are built strictly in dependency order so that nothing ever
// observes a half-constructed collaborator:
//
//	registry → local invoker → remote invoker → selector →
//	worker pools → stream manager → executor → syncer →
//	file source → MCP server
//
// The registry is the shared function catalog. Three writers feed it: the
// syncer (periodic pulls from registered services), the file source
// (YAML definitions on disk), and the operator tools on the MCP server.
// The executor only reads it.
//
// # Shutdown
//
// Run stops components in the reverse of their start order: the server
// first so no new requests arrive, then the file source and syncer so the
// catalog stops changing, then open stream sessions, then the worker
// pools (which drain their queues), and finally the remote invoker's
// connections. The whole sequence is bounded by a shutdown timeout so a
// wedged component cannot keep the process alive forever.
//
// Example usage:
//
//	cfg := app.NewConfig(false, false, "")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
