package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/logger"
)

// fakeFleet answers every submit with a canned sample, or fails targets
// listed in unreachable.
type fakeFleet struct {
	mu          sync.Mutex
	samples     map[string]fleet.MetricSample
	unreachable map[string]bool
	submitted   []string
}

func (f *fakeFleet) NewTransport(context.Context) (fleet.Transport, error) {
	return &fakeTransport{fleet: f}, nil
}

type fakeTransport struct {
	fleet *fakeFleet
}

func (t *fakeTransport) Submit(_ context.Context, targetID, _ string) (fleet.CommandHandle, error) {
	t.fleet.mu.Lock()
	defer t.fleet.mu.Unlock()
	t.fleet.submitted = append(t.fleet.submitted, targetID)
	if t.fleet.unreachable[targetID] {
		return fleet.CommandHandle{}, fmt.Errorf("dial %s: connection refused", targetID)
	}
	return fleet.CommandHandle{ID: "cmd-" + targetID, TargetID: targetID}, nil
}

func (t *fakeTransport) Poll(_ context.Context, h fleet.CommandHandle) (fleet.PollStatus, error) {
	t.fleet.mu.Lock()
	defer t.fleet.mu.Unlock()
	return fleet.PollStatus{
		Terminal: true,
		Success:  true,
		Output:   fleet.FormatMetrics(t.fleet.samples[h.TargetID]),
	}, nil
}

func (t *fakeTransport) Close() error { return nil }

// newTestWorkflow wires a static directory over hosts to f.
func newTestWorkflow(hosts map[string]config.Host, f *fakeFleet, filters ...string) *WorkflowContext {
	cfg := config.DefaultConfig()
	cfg.Transport = config.TransportSSH
	cfg.Hosts = hosts
	cfg.Collection.PollInterval = time.Millisecond
	return &WorkflowContext{
		Config:    cfg,
		Directory: directory.NewStatic(hosts),
		Factory:   f,
		Filters:   filters,
		Log:       logger.Noop(),
	}
}
