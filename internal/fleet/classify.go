package fleet

// Default alert thresholds, in percent.
const (
	DefaultDiskThreshold = 15
	DefaultRAMThreshold  = 80
)

// Thresholds are inclusive: a value equal to the threshold alerts.
type Thresholds struct {
	Disk int
	RAM  int
}

// DefaultThresholds returns the standard disk and memory thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Disk: DefaultDiskThreshold, RAM: DefaultRAMThreshold}
}

// Alert is a target whose figure met a threshold.
type Alert struct {
	Target  Target
	Percent int
}

// Report partitions a batch of results. A target is in OK, in one or both
// alert lists, or in Errors, never in more than one of those groups.
type Report struct {
	OK         []Target
	DiskAlerts []Alert
	RAMAlerts  []Alert
	Errors     []Target
}

// HasAlerts reports whether any threshold was met.
func (r Report) HasAlerts() bool {
	return len(r.DiskAlerts) > 0 || len(r.RAMAlerts) > 0
}

// Status is the per-target classification used for rendering.
type Status string

const (
	StatusOK    Status = "OK"
	StatusAlert Status = "ALERT"
	StatusError Status = "Error"
)

// StatusOf classifies a single result.
func StatusOf(r Result, th Thresholds) Status {
	s, ok := r.Outcome.Sample()
	if !ok {
		return StatusError
	}
	if s.DiskPercent >= th.Disk || s.MemPercent >= th.RAM {
		return StatusAlert
	}
	return StatusOK
}

// Classify partitions results against th. Order within each list follows
// the order of results.
func Classify(results []Result, th Thresholds) Report {
	var report Report
	for _, r := range results {
		s, ok := r.Outcome.Sample()
		if !ok {
			report.Errors = append(report.Errors, r.Target)
			continue
		}

		alerted := false
		if s.DiskPercent >= th.Disk {
			report.DiskAlerts = append(report.DiskAlerts, Alert{Target: r.Target, Percent: s.DiskPercent})
			alerted = true
		}
		if s.MemPercent >= th.RAM {
			report.RAMAlerts = append(report.RAMAlerts, Alert{Target: r.Target, Percent: s.MemPercent})
			alerted = true
		}
		if !alerted {
			report.OK = append(report.OK, r.Target)
		}
	}
	return report
}
