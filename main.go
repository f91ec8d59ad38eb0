package main

import (
	"fmt"
	"os"

	"github.com/rchanrussell/go-looper/cmd"
	"github.com/rchanrussell/go-looper/internal/conf"
	"github.com/rchanrussell/go-looper/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
