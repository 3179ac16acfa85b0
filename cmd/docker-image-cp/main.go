// Package main is the entry point for the docker-image-cp CLI.
//
// This binary copies files or directories out of a Docker image, building
// the image first when given a build context. It delegates all
// functionality to the internal/cli package, which defines the cobra
// command.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during the release process. During development, they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"github.com/shinji-kodama/docker-image-cp/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Execute handles error output, interrupt handling and exit codes.
	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
