package main

import (
	"fmt"
	"os"

	"github.com/voyago/voyago-go/cmd"
	"github.com/voyago/voyago-go/internal/conf"
	"github.com/voyago/voyago-go/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
