// Package main provides the entry point for the boardsync CLI tool.
package main

import "github.com/meridianlabs/boardsync/cmd/boardsync/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
