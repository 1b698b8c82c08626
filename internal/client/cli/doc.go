// Package cli provides the interactive flashboard command-line client.
//
// It wires configuration, the HTTP API client and a small REPL. A background
// watcher pings the server and flips the prompt between online and offline.
//
// Commands cover the account lifecycle: login, refresh, logout, register
// (administrators only) and confirm.
package cli
