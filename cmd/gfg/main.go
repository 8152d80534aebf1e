// Package main implements the go-flow-graph CLI (gfg).
// It builds per-method control flow edge files from unit files and
// inspects the results.
package main

import (
	"os"

	"github.com/l3aro/go-flow-graph/cmd/gfg/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.SetVersion(version, buildTime)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
