// Package main provides the entry point for the mqomctl CLI.
package main

import (
	"context"
	"os"

	"github.com/mrz1836/mqomctl/internal/cli"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "" //nolint:gochecknoglobals // ldflags target
	commit  = "" //nolint:gochecknoglobals // ldflags target
	date    = "" //nolint:gochecknoglobals // ldflags target
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	cli.CloseLogFile()
	os.Exit(cli.ExitCodeForError(err))
}
