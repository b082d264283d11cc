// Package report turns collection results into the fleet usage report:
// a table for people, or JSON/YAML for scripts.
package report

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
)

// Format selects how a report is written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown output format '%s'", s),
		"Use one of: table, json, yaml")
}

// Row is one target's line in the report. Percentages are nil when the
// target produced no sample.
type Row struct {
	InstanceID  string  `json:"instance_id" yaml:"instance_id"`
	Name        string  `json:"name" yaml:"name"`
	DiskPercent *int    `json:"disk_percent" yaml:"disk_percent"`
	MemPercent  *int    `json:"memory_percent" yaml:"memory_percent"`
	Status      string  `json:"status" yaml:"status"`
	DiskAlert   bool    `json:"disk_alert" yaml:"disk_alert"`
	MemAlert    bool    `json:"memory_alert" yaml:"memory_alert"`
	Outcome     string  `json:"outcome" yaml:"outcome"`
	Error       string  `json:"error,omitempty" yaml:"error,omitempty"`
	Seconds     float64 `json:"duration_seconds" yaml:"duration_seconds"`
}

// AlertEntry is a target over a threshold.
type AlertEntry struct {
	InstanceID string `json:"instance_id" yaml:"instance_id"`
	Name       string `json:"name" yaml:"name"`
	Percent    int    `json:"percent" yaml:"percent"`
}

// Summary counts targets per group. A target alerting on both resources
// counts once in Alerting.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	OK       int `json:"ok" yaml:"ok"`
	Alerting int `json:"alerting" yaml:"alerting"`
	Failed   int `json:"failed" yaml:"failed"`
}

// Document is the complete report for one collection.
type Document struct {
	Thresholds struct {
		Disk   int `json:"disk" yaml:"disk"`
		Memory int `json:"memory" yaml:"memory"`
	} `json:"thresholds" yaml:"thresholds"`
	Targets    []Row        `json:"targets" yaml:"targets"`
	DiskAlerts []AlertEntry `json:"disk_alerts" yaml:"disk_alerts"`
	RAMAlerts  []AlertEntry `json:"memory_alerts" yaml:"memory_alerts"`
	Summary    Summary      `json:"summary" yaml:"summary"`
}

// HasProblems reports whether any target alerted or failed.
func (d Document) HasProblems() bool {
	return d.Summary.Alerting > 0 || d.Summary.Failed > 0
}

// Build classifies results and lays them out in input order.
func Build(results []fleet.Result, th fleet.Thresholds) Document {
	var doc Document
	doc.Thresholds.Disk = th.Disk
	doc.Thresholds.Memory = th.RAM
	doc.Targets = make([]Row, 0, len(results))

	classified := fleet.Classify(results, th)
	doc.DiskAlerts = alertEntries(classified.DiskAlerts)
	doc.RAMAlerts = alertEntries(classified.RAMAlerts)

	for _, r := range results {
		row := Row{
			InstanceID: r.Target.ID,
			Name:       r.Target.DisplayName(),
			Status:     string(fleet.StatusOf(r, th)),
			Outcome:    r.Outcome.Kind().String(),
			Seconds:    r.Duration.Seconds(),
		}
		if s, ok := r.Outcome.Sample(); ok {
			disk, mem := s.DiskPercent, s.MemPercent
			row.DiskPercent = &disk
			row.MemPercent = &mem
			row.DiskAlert = disk >= th.Disk
			row.MemAlert = mem >= th.RAM
		} else {
			row.Error = errors.Brief(r.Outcome.Err())
		}
		doc.Targets = append(doc.Targets, row)

		switch row.Status {
		case string(fleet.StatusOK):
			doc.Summary.OK++
		case string(fleet.StatusAlert):
			doc.Summary.Alerting++
		default:
			doc.Summary.Failed++
		}
	}
	doc.Summary.Total = len(results)
	return doc
}

func alertEntries(alerts []fleet.Alert) []AlertEntry {
	out := make([]AlertEntry, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertEntry{
			InstanceID: a.Target.ID,
			Name:       a.Target.DisplayName(),
			Percent:    a.Percent,
		})
	}
	return out
}
