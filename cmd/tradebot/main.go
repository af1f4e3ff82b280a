package main

import (
	"os"

	"github.com/wonny/tradebot/cmd/tradebot/commands"
)

// main is the entry point of the tradebot CLI
// ⭐ single CLI entry point: go run ./cmd/tradebot [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
