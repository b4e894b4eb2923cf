// Package cli implements the foreman command-line client. Every command
// talks to a running foremand server over its REST API; nothing here touches
// the database directly.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:9090"

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "foreman",
	Short: "foreman — manage an AI agent workforce",
	Long: `foreman is the command-line client for foremand, the workforce
orchestrator. It creates and assigns tasks, hires and retires agents, and
inspects boards and webhook registrations on a running server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	def := os.Getenv("FOREMAN_SERVER")
	if def == "" {
		def = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", def, "foremand server URL (or $FOREMAN_SERVER)")
}

// Execute runs the root command. Called from main.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
