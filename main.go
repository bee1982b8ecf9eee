package main

import (
	"os"

	"github.com/dominikschlosser/prefixgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
