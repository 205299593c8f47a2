package main

import (
	"os"

	"github.com/portal-dev/portal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
