package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "huskyd",
	Short: "huskyd - HuskyLens 2 MCP gateway and scheduler",
	Long: `huskyd bridges a HuskyLens 2 AI camera to MCP clients. It exposes the
camera's recognition results and media controls as MCP tools, runs a task
scheduler that fires actions on trigger labels or timestamps, and ships an
interactive chat terminal with a Gemini-backed vision brain.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	configPath string
	serverURL  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.huskyd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Gateway MCP endpoint (default from config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(taskCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
