package main

import (
	"os"

	"span-screener/cmd/span/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
