package main

import (
	"fmt"
	"os"

	"github.com/gorkbot/gork/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	// Rebuild-and-restart is for local development only.
	if os.Getenv("GORK_DEV_RESTART") != "" {
		go autorestart.RestartOnChange()
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
