package main

import (
	"os"

	"github.com/liberate-sh/liberate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
