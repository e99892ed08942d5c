package main

import (
	"os"

	"github.com/mechanicaltomato/fizzy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
