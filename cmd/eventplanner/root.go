package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "eventplanner",
	Short: "Event and task planner",
	Long: `eventplanner keeps track of events and the tasks they need.
It runs as a Telegram bot with a periodic digest and can sync events
into an iCalendar file.`,
	SilenceUsage: true,
}

// Execute runs the root command; it is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ./config.yaml or $HOME/.event-planner/config.yaml)")
}
