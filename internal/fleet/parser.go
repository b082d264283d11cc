package fleet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DiagnosticScript is sent to every target. It prints the root filesystem
// usage as "NN%" followed by memory usage as a bare integer percentage.
const DiagnosticScript = `df -h --output=pcent / | tail -n 1 && free -m | awk '/Mem:/ {printf("%d", $3*100/$2)}'`

// ErrMalformedOutput is wrapped by every ParseMetrics failure.
var ErrMalformedOutput = errors.New("malformed diagnostic output")

// ParseMetrics decodes the two-line diagnostic output into a sample.
// Values are trusted as reported; only their numeric shape is checked.
func ParseMetrics(raw string) (MetricSample, error) {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) != 2 {
		return MetricSample{}, fmt.Errorf("%w: expected 2 lines, got %d", ErrMalformedOutput, len(lines))
	}

	disk, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(lines[0], "%")))
	if err != nil {
		return MetricSample{}, fmt.Errorf("%w: disk usage %q is not a percentage", ErrMalformedOutput, lines[0])
	}

	mem, err := strconv.Atoi(lines[1])
	if err != nil {
		return MetricSample{}, fmt.Errorf("%w: memory usage %q is not an integer", ErrMalformedOutput, lines[1])
	}

	return MetricSample{DiskPercent: disk, MemPercent: mem}, nil
}

// FormatMetrics renders a sample the way DiagnosticScript prints it.
func FormatMetrics(s MetricSample) string {
	return fmt.Sprintf("%d%%\n%d", s.DiskPercent, s.MemPercent)
}
