package fleet

import (
	"context"
	"time"
)

// Target is one monitored machine. ID is the identity; Name is optional.
type Target struct {
	ID   string
	Name string
}

// DisplayName returns the target name, or "Unnamed" when it has none.
func (t Target) DisplayName() string {
	if t.Name == "" {
		return "Unnamed"
	}
	return t.Name
}

// MetricSample holds the two utilization figures reported by a target.
type MetricSample struct {
	DiskPercent int
	MemPercent  int
}

// Result pairs a target with the outcome of collecting from it.
type Result struct {
	Target   Target
	Outcome  Outcome
	Duration time.Duration
}

// CommandHandle identifies one outstanding remote execution. It is only
// meaningful to the transport instance that issued it.
type CommandHandle struct {
	ID       string
	TargetID string
}

// PollStatus is a snapshot of a remote execution.
type PollStatus struct {
	Terminal bool
	Success  bool
	Output   string // captured stdout, set once terminal
	Detail   string // transport status text, used in failure reasons
}

// Transport runs scripts on targets through some remote execution service.
// A Transport instance is used by exactly one worker and is never shared.
type Transport interface {
	Submit(ctx context.Context, targetID, script string) (CommandHandle, error)
	Poll(ctx context.Context, handle CommandHandle) (PollStatus, error)
	Close() error
}

// TransportFactory creates a fresh Transport for each worker.
type TransportFactory interface {
	NewTransport(ctx context.Context) (Transport, error)
}

// TransportFactoryFunc adapts a function to TransportFactory.
type TransportFactoryFunc func(ctx context.Context) (Transport, error)

// NewTransport calls f(ctx).
func (f TransportFactoryFunc) NewTransport(ctx context.Context) (Transport, error) {
	return f(ctx)
}

// Progress receives one notification per finished target. Implementations
// must return quickly; they are called from worker goroutines.
type Progress interface {
	TargetCompleted(r Result)
}

// NoProgress discards progress notifications.
var NoProgress Progress = noProgress{}

type noProgress struct{}

func (noProgress) TargetCompleted(Result) {}
