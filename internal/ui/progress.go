package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
)

const progressBarWidth = 30

// ProgressBar draws collection progress on a single, redrawn line.
// It implements fleet.Progress and is safe for concurrent workers.
// On a non-terminal writer it stays silent.
type ProgressBar struct {
	mu      sync.Mutex
	out     io.Writer
	label   string
	total   int
	done    int
	failed  int
	bar     progress.Model
	enabled bool
	start   time.Time
}

var _ fleet.Progress = (*ProgressBar)(nil)

// NewProgressBar creates a bar for total targets. Drawing is enabled only
// when out is a terminal.
func NewProgressBar(out io.Writer, label string, total int) *ProgressBar {
	p := progress.New(
		progress.WithSolidFill(string(ColorSuccess)),
		progress.WithWidth(progressBarWidth),
		progress.WithoutPercentage(),
	)
	p.EmptyColor = string(ColorMuted)

	return &ProgressBar{
		out:     out,
		label:   label,
		total:   total,
		bar:     p,
		enabled: IsTerminal(out),
		start:   time.Now(),
	}
}

// SetEnabled overrides terminal detection.
func (p *ProgressBar) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Start draws the empty bar.
func (p *ProgressBar) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = time.Now()
	p.redraw()
}

// TargetCompleted records one finished target and redraws.
func (p *ProgressBar) TargetCompleted(r fleet.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if !r.Outcome.OK() {
		p.failed++
	}
	p.redraw()
}

// Counts returns how many targets finished and how many of those failed.
func (p *ProgressBar) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

// Finish replaces the bar with a one-line summary.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}

	symbol := SuccessStyle.Render(SymbolSuccess)
	if p.failed > 0 {
		symbol = WarningStyle.Render(SymbolWarning)
	}
	summary := fmt.Sprintf("%s %s %d targets %s", symbol, p.label, p.done,
		MutedStyle.Render(fmt.Sprintf("(%s)", time.Since(p.start).Round(100*time.Millisecond))))
	if p.failed > 0 {
		summary += " " + AlertStyle.Render(fmt.Sprintf("%d failed", p.failed))
	}
	fmt.Fprintf(p.out, "\r\033[K%s\n", summary)
}

// View renders the current line without writing it.
func (p *ProgressBar) View() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view()
}

func (p *ProgressBar) view() string {
	percent := 1.0
	if p.total > 0 {
		percent = float64(p.done) / float64(p.total)
	}

	var b strings.Builder
	b.WriteString(ProgressStyle.Render(SymbolProgress))
	b.WriteString(" ")
	b.WriteString(p.label)
	b.WriteString(" ")
	b.WriteString(p.bar.ViewAs(percent))
	b.WriteString(fmt.Sprintf(" %d/%d", p.done, p.total))
	if p.failed > 0 {
		b.WriteString(" ")
		b.WriteString(AlertStyle.Render(fmt.Sprintf("%d failed", p.failed)))
	}
	return b.String()
}

func (p *ProgressBar) redraw() {
	if !p.enabled {
		return
	}
	fmt.Fprintf(p.out, "\r\033[K%s", p.view())
}
