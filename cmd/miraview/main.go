// Package main is the entry point for the miraview application.
package main

import (
	"os"

	"github.com/jmylchreest/miraview/cmd/miraview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
