package main

import "github.com/hbruhn/devprobe/apps/cli/cmd"

// Set via -ldflags at release build time.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
