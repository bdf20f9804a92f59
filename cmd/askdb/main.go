package main

import (
	"os"

	"github.com/askdb-labs/askdb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
