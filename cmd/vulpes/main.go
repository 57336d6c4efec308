package main

import (
	"os"

	"github.com/dochatty/vulpes/cmd/vulpes/internal/cli"
)

// Build-time variables injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(cli.Run(version, commit, date))
}
