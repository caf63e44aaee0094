package main

import (
	"os"

	"github.com/mingkaili/ai-trading-signal-engine/cmd/engine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
