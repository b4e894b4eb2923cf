package cli

import (
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/foreman/agent"
)

func init() {
	agentsCmd.Flags().StringVar(&agentsStatus, "status", "", "filter by status")
	rootCmd.AddCommand(agentsCmd)

	agentHireCmd.Flags().StringVar(&hireName, "name", "", "agent name")
	agentHireCmd.Flags().Int64Var(&hireResumeID, "resume", 0, "resume ID")
	agentHireCmd.Flags().Int64Var(&hireJobID, "job", 0, "job description ID")
	agentHireCmd.Flags().StringVar(&hireModel, "model", "", "model name from the catalog")
	_ = agentHireCmd.MarkFlagRequired("name")
	_ = agentHireCmd.MarkFlagRequired("resume")
	_ = agentHireCmd.MarkFlagRequired("job")
	_ = agentHireCmd.MarkFlagRequired("model")
	agentDeactivateCmd.Flags().StringVar(&retireReason, "reason", "", "why the agent is being retired")
	agentTerminateCmd.Flags().StringVar(&retireReason, "reason", "", "why the agent is being retired")

	agentCmd.AddCommand(agentHireCmd, agentActivateCmd, agentDeactivateCmd, agentTerminateCmd)
	rootCmd.AddCommand(agentCmd)
}

var (
	agentsStatus string
	hireName     string
	hireResumeID int64
	hireJobID    int64
	hireModel    string
	retireReason string
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents",
	Args:  cobra.NoArgs,
	RunE:  runAgents,
}

func runAgents(cmd *cobra.Command, _ []string) error {
	path := "/api/agents"
	if agentsStatus != "" {
		path += "?status=" + url.QueryEscape(agentsStatus)
	}

	var agents []*agent.Agent
	if err := newClient().get(path, &agents); err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no agents")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODEL\tSTATUS")
	for _, a := range agents {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, truncate(a.Name, 30), a.ModelName, a.Status)
	}
	return w.Flush()
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage a single agent",
}

var agentHireCmd = &cobra.Command{
	Use:   "hire",
	Short: "Hire an agent from a resume, a job description, and a model",
	Args:  cobra.NoArgs,
	RunE:  runAgentHire,
}

func runAgentHire(cmd *cobra.Command, _ []string) error {
	body := map[string]any{
		"name":               hireName,
		"resume_id":          hireResumeID,
		"job_description_id": hireJobID,
		"model_name":         hireModel,
	}
	var a agent.Agent
	if err := newClient().post("/api/agents", jsonBody(body), &a); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "hired agent %d (%s on %s)\n", a.ID, a.Name, a.ModelName)
	return nil
}

var agentActivateCmd = &cobra.Command{
	Use:   "activate ID",
	Short: "Return an inactive agent to duty",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgentLifecycle(cmd, args[0], "activate")
	},
}

var agentDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID",
	Short: "Take an agent off duty",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgentLifecycle(cmd, args[0], "deactivate")
	},
}

var agentTerminateCmd = &cobra.Command{
	Use:   "terminate ID",
	Short: "Permanently retire an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgentLifecycle(cmd, args[0], "terminate")
	},
}

func runAgentLifecycle(cmd *cobra.Command, id, action string) error {
	var body map[string]any
	if retireReason != "" {
		body = map[string]any{"reason": retireReason}
	}
	var a agent.Agent
	if err := newClient().post("/api/agents/"+id+"/"+action, jsonBody(body), &a); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agent %d is now %s\n", a.ID, a.Status)
	return nil
}
