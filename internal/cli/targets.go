package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/ui"
	"github.com/spf13/cobra"
)

func targetsCommand(cmd *cobra.Command, flags *CollectionFlags, asJSON bool) error {
	wf, err := SetupWorkflow(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer wf.Close()

	return listTargets(cmd.Context(), wf, cmd.OutOrStdout(), asJSON)
}

type targetJSON struct {
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
}

// listTargets prints the targets a report would collect from, without
// running anything on them.
func listTargets(ctx context.Context, wf *WorkflowContext, out io.Writer, asJSON bool) error {
	targets := directory.Resolve(ctx, wf.Directory, wf.Filters, wf.Log)

	if asJSON {
		rows := make([]targetJSON, 0, len(targets))
		for _, t := range targets {
			rows = append(rows, targetJSON{InstanceID: t.ID, Name: t.DisplayName()})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No instances found to monitor.")
		return nil
	}
	fmt.Fprintln(out, renderTargets(targets))
	fmt.Fprintln(out, ui.MutedStyle.Render(fmt.Sprintf("%d targets", len(targets))))
	return nil
}

func renderTargets(targets []fleet.Target) string {
	rows := make([][]string, 0, len(targets))
	for _, t := range targets {
		rows = append(rows, []string{t.ID, t.DisplayName()})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(ui.MutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return ui.HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("Instance ID", "Name").
		Rows(rows...).
		String()
}
