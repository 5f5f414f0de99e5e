package main

import (
	"os"

	"research_assistant/cmd/research/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
