package cli

import (
	"fmt"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/foreman/task"
)

func init() {
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "", "filter by status")
	tasksCmd.Flags().StringVar(&tasksPriority, "priority", "", "filter by priority")
	tasksCmd.Flags().BoolVar(&tasksReady, "ready", false, "only tasks ready for assignment")
	rootCmd.AddCommand(tasksCmd)

	taskCreateCmd.Flags().StringVar(&taskDescription, "description", "", "task description")
	taskCreateCmd.Flags().StringVar(&taskPriority, "priority", "", "low, medium, high or urgent")
	taskCreateCmd.Flags().StringSliceVar(&taskSkills, "skills", nil, "required skills")
	taskBlockCmd.Flags().StringVar(&blockType, "type", "", "blocker type")
	taskBlockCmd.Flags().StringVar(&blockReason, "reason", "", "what the task is waiting on")
	_ = taskBlockCmd.MarkFlagRequired("type")
	_ = taskBlockCmd.MarkFlagRequired("reason")
	taskAssignCmd.Flags().Int64Var(&assignAgentID, "agent", 0, "agent ID")
	_ = taskAssignCmd.MarkFlagRequired("agent")

	taskCmd.AddCommand(taskCreateCmd, taskShowCmd, taskStatusCmd, taskBlockCmd, taskUnblockCmd, taskAssignCmd)
	rootCmd.AddCommand(taskCmd)
}

var (
	tasksStatus     string
	tasksPriority   string
	tasksReady      bool
	taskDescription string
	taskPriority    string
	taskSkills      []string
	blockType       string
	blockReason     string
	assignAgentID   int64
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE:  runTasks,
}

func runTasks(cmd *cobra.Command, _ []string) error {
	path := "/api/tasks"
	if tasksReady {
		path = "/api/tasks/ready"
	} else {
		q := url.Values{}
		if tasksStatus != "" {
			q.Set("status", tasksStatus)
		}
		if tasksPriority != "" {
			q.Set("priority", tasksPriority)
		}
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
	}

	var tasks []*task.Task
	if err := newClient().get(path, &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no tasks")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tBLOCKERS")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
			t.ID, truncate(t.Title, 40), t.Status, t.Priority, len(t.Blockers))
	}
	return w.Flush()
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Work with a single task",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskCreate,
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	body := map[string]any{
		"title":       strings.Join(args, " "),
		"description": taskDescription,
	}
	if taskPriority != "" {
		body["priority"] = taskPriority
	}
	if len(taskSkills) > 0 {
		body["required_skills"] = taskSkills
	}

	var created task.Task
	if err := newClient().post("/api/tasks", jsonBody(body), &created); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created task %d\n", created.ID)
	return nil
}

var taskShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one task in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	var t task.Task
	if err := newClient().get("/api/tasks/"+args[0], &t); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:        %d\n", t.ID)
	fmt.Fprintf(out, "title:     %s\n", t.Title)
	fmt.Fprintf(out, "status:    %s\n", t.Status)
	fmt.Fprintf(out, "priority:  %s\n", t.Priority)
	if len(t.RequiredSkills) > 0 {
		fmt.Fprintf(out, "skills:    %s\n", strings.Join(t.RequiredSkills, ", "))
	}
	if len(t.Dependencies) > 0 {
		deps := make([]string, len(t.Dependencies))
		for i, d := range t.Dependencies {
			deps[i] = fmt.Sprint(d)
		}
		fmt.Fprintf(out, "depends:   %s\n", strings.Join(deps, ", "))
	}
	for _, b := range t.Blockers {
		fmt.Fprintf(out, "blocked:   [%s] %s\n", b.Type, b.Description)
	}
	if t.Description != "" {
		fmt.Fprintf(out, "\n%s\n", t.Description)
	}
	return nil
}

var taskStatusCmd = &cobra.Command{
	Use:   "status ID STATUS",
	Short: "Move a task to a new status",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskStatus,
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	body := map[string]any{"status": args[1]}
	var t task.Task
	if err := newClient().post("/api/tasks/"+args[0]+"/status", jsonBody(body), &t); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "task %d is now %s\n", t.ID, t.Status)
	return nil
}

var taskBlockCmd = &cobra.Command{
	Use:   "block ID",
	Short: "Record a blocker on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskBlock,
}

func runTaskBlock(cmd *cobra.Command, args []string) error {
	body := map[string]any{"type": blockType, "description": blockReason}
	var t task.Task
	if err := newClient().post("/api/tasks/"+args[0]+"/blockers", jsonBody(body), &t); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "task %d blocked (%d blocker(s))\n", t.ID, len(t.Blockers))
	return nil
}

var taskUnblockCmd = &cobra.Command{
	Use:   "unblock ID TYPE",
	Short: "Clear blockers of one type from a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskUnblock,
}

func runTaskUnblock(cmd *cobra.Command, args []string) error {
	if err := newClient().del("/api/tasks/" + args[0] + "/blockers/" + url.PathEscape(args[1])); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "task %s unblocked\n", args[0])
	return nil
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign ID",
	Short: "Assign a task to an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskAssign,
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	body := map[string]any{"agent_id": assignAgentID}
	var asn task.Assignment
	if err := newClient().post("/api/tasks/"+args[0]+"/assignments", jsonBody(body), &asn); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "assignment %d: task %d -> agent %d (capability %.0f)\n",
		asn.ID, asn.TaskID, asn.AgentID, asn.CapabilityScore)
	return nil
}
