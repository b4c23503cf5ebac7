// homedash serves per-user smart home dashboards.
//
// The server keeps a JSON state document for every user, refreshes light and
// climate telemetry into those documents on a fixed interval, and asks an
// external agent to lay out a new dashboard when a user requests one.
//
// Subcommands:
//   - serve (default): run the HTTP API, WebSocket push and telemetry poller
//   - discover: scan the local network for lights and print them
//   - poll: run telemetry cycles without the API
//   - token: issue an access token for a user
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := execute(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
