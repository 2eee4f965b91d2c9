package main

import (
	"os"

	"github.com/inkwell-cms/inkwell/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
