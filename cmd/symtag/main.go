package main

import (
	"os"

	"github.com/TomMcIver/Stock-Port/cmd/symtag/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
