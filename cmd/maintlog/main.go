package main

import (
	"os"

	"github.com/yegors/maintlog/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
