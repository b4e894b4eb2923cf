package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	var st struct {
		Status        string  `json:"status"`
		Version       string  `json:"version"`
		UptimeSeconds float64 `json:"uptime_seconds"`
		ActiveAgents  int     `json:"active_agents"`
		PendingTasks  int     `json:"pending_tasks"`
		SSEClients    int     `json:"sse_clients"`
	}
	if err := newClient().get("/api/status", &st); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status:         %s\n", st.Status)
	fmt.Fprintf(out, "version:        %s\n", st.Version)
	fmt.Fprintf(out, "uptime:         %.0fs\n", st.UptimeSeconds)
	fmt.Fprintf(out, "active agents:  %d\n", st.ActiveAgents)
	fmt.Fprintf(out, "pending tasks:  %d\n", st.PendingTasks)
	fmt.Fprintf(out, "event clients:  %d\n", st.SSEClients)
	return nil
}
