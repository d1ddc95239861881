package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"stock-sentinel/internal/cli"
	"stock-sentinel/internal/config"
	"stock-sentinel/internal/logging"
)

func main() {
	// Optional .env for local development; real deployments use the
	// credentials file or environment variables.
	_ = godotenv.Load()

	configDir := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
