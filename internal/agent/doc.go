// Package agent implements the MCP client side of switchboard: the
// `switchboard agent` command connects to a running gateway, mirrors its
// tool catalog, and surfaces the gateway's push notifications.
//
// The package has three layers:
//
//   - Client wraps an mcp-go client for either transport (SSE or
//     streamable HTTP), keeps a cached copy of the gateway's tool list,
//     and routes notifications into NotificationChan. It reacts to
//     notifications/switchboard/functions_changed by re-listing tools and
//     printing a diff, and prints the payload of
//     notifications/switchboard/response so async and stream follow-ups
//     are visible as they arrive.
//
//   - Logger provides the agent's console output: plain timestamped
//     lines by default, color when the terminal supports it, and a
//     full JSON-RPC protocol trace in --json-rpc mode.
//
//   - REPL provides the interactive mode (--repl) built on readline:
//     tab completion for commands, tool names and request arguments,
//     persistent history, and a background listener that repaints the
//     prompt around incoming notifications.
//
// REPL commands live in the commands subpackage; each implements the
// commands.Command interface and is registered with aliases in
// registerCommands.
package agent
