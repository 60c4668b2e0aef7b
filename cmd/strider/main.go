package main

import (
	"os"

	"github.com/dmarsh/strider/cmd/strider/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
