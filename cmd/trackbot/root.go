package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopline/trackbot/internal/config"
	"github.com/loopline/trackbot/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "trackbot",
	Short: "Trackbot is a chat-driven project tracker",
	Long:  `Trackbot guides Telegram users through project creation, progress updates, and search, persisting everything to Airtable.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file (defaults to $CONFIG_PATH or config.yaml)")
}

// loadConfig resolves the config path, loads it, and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := logger.Init(cfg); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
