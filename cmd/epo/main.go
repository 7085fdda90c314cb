package main

import (
	"os"

	"github.com/wonny/epo/cmd/epo/commands"
)

// main is the entry point for the EPO CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/epo [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
