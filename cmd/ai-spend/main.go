package main

import (
	"os"

	"github.com/user/ai-spend-tracker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
