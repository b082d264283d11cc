package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/ui"
	"gopkg.in/yaml.v3"
)

// Render writes the report for results in format.
func Render(w io.Writer, results []fleet.Result, th fleet.Thresholds, format Format) error {
	doc := Build(results, th)
	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	default:
		_, err = io.WriteString(w, RenderTable(doc))
	}
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExport,
			"Couldn't write the report",
			"Check the output stream is writable")
	}
	return nil
}

var headers = []string{"Instance ID", "Name", "Disk Usage (%)", "RAM Usage (%)", "Status"}

// RenderTable renders the usage table followed by the alert and error
// sections.
func RenderTable(doc Document) string {
	var b strings.Builder

	b.WriteString(ui.HeaderStyle.Render("Instance Resource Usage:"))
	b.WriteString("\n")

	rows := make([][]string, 0, len(doc.Targets))
	for _, r := range doc.Targets {
		rows = append(rows, []string{
			r.InstanceID,
			r.Name,
			percentCell(r.DiskPercent, r.DiskAlert),
			percentCell(r.MemPercent, r.MemAlert),
			statusCell(r.Status),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(ui.MutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return ui.HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	writeAlerts(&b, doc)
	writeErrors(&b, doc)
	return b.String()
}

func percentCell(p *int, alert bool) string {
	if p == nil {
		return "N/A"
	}
	s := fmt.Sprintf("%d%%", *p)
	if alert {
		return ui.AlertStyle.Render(s)
	}
	return s
}

func statusCell(status string) string {
	switch fleet.Status(status) {
	case fleet.StatusAlert:
		return ui.AlertStyle.Render(status)
	case fleet.StatusError:
		return ui.MutedStyle.Render(status)
	}
	return status
}

func writeAlerts(b *strings.Builder, doc Document) {
	if len(doc.DiskAlerts) == 0 && len(doc.RAMAlerts) == 0 {
		return
	}

	b.WriteString("\n")
	b.WriteString(ui.WarningStyle.Render(ui.SymbolWarning + " ALERTS - Instances Exceeding Thresholds:"))
	b.WriteString("\n")

	if len(doc.DiskAlerts) > 0 {
		fmt.Fprintf(b, "\nDisk Usage >= %d%%:\n", doc.Thresholds.Disk)
		for _, a := range doc.DiskAlerts {
			fmt.Fprintf(b, "  • %s (%s): %d%%\n", a.Name, a.InstanceID, a.Percent)
		}
	}
	if len(doc.RAMAlerts) > 0 {
		fmt.Fprintf(b, "\nRAM Usage >= %d%%:\n", doc.Thresholds.Memory)
		for _, a := range doc.RAMAlerts {
			fmt.Fprintf(b, "  • %s (%s): %d%%\n", a.Name, a.InstanceID, a.Percent)
		}
	}
}

func writeErrors(b *strings.Builder, doc Document) {
	if doc.Summary.Failed == 0 {
		return
	}

	b.WriteString("\n")
	b.WriteString(ui.AlertStyle.Render(fmt.Sprintf("%s %d instance(s) could not be checked:", ui.SymbolFail, doc.Summary.Failed)))
	b.WriteString("\n")
	for _, r := range doc.Targets {
		if r.Error == "" {
			continue
		}
		fmt.Fprintf(b, "  • %s (%s): %s\n", r.Name, r.InstanceID, ui.MutedStyle.Render(r.Error))
	}
}
