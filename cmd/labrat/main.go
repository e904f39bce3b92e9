package main

import (
	"os"

	"github.com/labrat/labrat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
