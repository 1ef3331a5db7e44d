package main

import (
	"os"

	"github.com/petloan/dspactl/cmd/dspactl/cmd"
	"github.com/petloan/dspactl/internal/core"
)

// Version information - set by goreleaser at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)

	// Exit 0 on success, 2 when a monitoring window timed out, 1 otherwise.
	if err := cmd.Execute(); err != nil {
		os.Exit(core.ExitCode(err))
	}
}
