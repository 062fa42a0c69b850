// Package main provides the queryflow CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/queryflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
