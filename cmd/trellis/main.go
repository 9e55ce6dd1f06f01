// Package main is the entry point for the trellis service.
package main

import (
	"os"

	"github.com/Ramsey-B/trellis/cmd/trellis/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
