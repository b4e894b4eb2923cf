package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/foreman/webhook"
)

func init() {
	webhookCmd.AddCommand(webhookListCmd, webhookAddCmd, webhookRemoveCmd, webhookTestCmd)
	rootCmd.AddCommand(webhookCmd)
}

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage webhook registrations",
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered webhooks",
	Args:  cobra.NoArgs,
	RunE:  runWebhookList,
}

func runWebhookList(cmd *cobra.Command, _ []string) error {
	var hooks []*webhook.Webhook
	if err := newClient().get("/api/webhooks", &hooks); err != nil {
		return err
	}
	if len(hooks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no webhooks")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEVENT\tACTIVE\tURL")
	for _, h := range hooks {
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", h.ID, h.EventCode, h.Active, h.URL)
	}
	return w.Flush()
}

var webhookAddCmd = &cobra.Command{
	Use:   "add URL EVENT",
	Short: "Register a webhook for an event code (or * for all)",
	Args:  cobra.ExactArgs(2),
	RunE:  runWebhookAdd,
}

func runWebhookAdd(cmd *cobra.Command, args []string) error {
	body := map[string]any{"url": args[0], "event_code": args[1]}
	var h webhook.Webhook
	if err := newClient().post("/api/webhooks", jsonBody(body), &h); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "webhook %d registered for %s\n", h.ID, h.EventCode)
	return nil
}

var webhookRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Delete a webhook registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().del("/api/webhooks/" + args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "webhook %s removed\n", args[0])
		return nil
	},
}

var webhookTestCmd = &cobra.Command{
	Use:   "test ID",
	Short: "Fire a test event at a webhook's endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Delivered bool   `json:"delivered"`
			EventID   string `json:"event_id"`
		}
		if err := newClient().post("/api/webhooks/"+args[0]+"/test", nil, &resp); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "delivered test event %s\n", resp.EventID)
		return nil
	},
}
