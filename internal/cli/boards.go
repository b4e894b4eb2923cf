package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/foreman/board"
)

func init() {
	rootCmd.AddCommand(boardsCmd)
}

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List boards with their columns",
	Args:  cobra.NoArgs,
	RunE:  runBoards,
}

func runBoards(cmd *cobra.Command, _ []string) error {
	cli := newClient()

	var boards []*board.Board
	if err := cli.get("/api/boards", &boards); err != nil {
		return err
	}
	if len(boards) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no boards")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLUMNS")
	for _, b := range boards {
		var columns []*board.StatusColumn
		if err := cli.get(fmt.Sprintf("/api/boards/%d/columns", b.ID), &columns); err != nil {
			return err
		}
		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = c.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", b.ID, truncate(b.Name, 30), joinOrDash(names))
	}
	return w.Flush()
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
