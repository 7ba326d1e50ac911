package main

import (
	"os"

	"financial_model/pkg/cli"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
