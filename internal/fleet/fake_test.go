package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// behavior scripts how the fake transport treats one target.
type behavior struct {
	submitErr    error
	pollErr      error
	pendingPolls int // non-terminal polls before the terminal one; -1 never terminates
	failed       bool
	detail       string
	output       string
	pollDelay    time.Duration
	panicOnPoll  bool
}

func succeedWith(disk, mem int) behavior {
	return behavior{output: FormatMetrics(MetricSample{DiskPercent: disk, MemPercent: mem})}
}

// fakeFleet is a TransportFactory whose transports follow per-target
// behaviors and record how they were used.
type fakeFleet struct {
	mu          sync.Mutex
	behaviors   map[string]behavior
	factoryErr  error
	created     int
	closed      int
	submits     []string
	polls       map[string]int
	scripts     []string
	inFlight    int
	maxInFlight int
}

func newFakeFleet(behaviors map[string]behavior) *fakeFleet {
	return &fakeFleet{behaviors: behaviors, polls: make(map[string]int)}
}

func (f *fakeFleet) NewTransport(ctx context.Context) (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.factoryErr != nil {
		return nil, f.factoryErr
	}
	f.created++
	return &fakeTransport{fleet: f}, nil
}

func (f *fakeFleet) pollCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[id]
}

type fakeTransport struct {
	fleet     *fakeFleet
	submitted bool
	closed    bool
}

func (t *fakeTransport) Submit(ctx context.Context, targetID, script string) (CommandHandle, error) {
	f := t.fleet
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submits = append(f.submits, targetID)
	f.scripts = append(f.scripts, script)
	b, ok := f.behaviors[targetID]
	if !ok {
		return CommandHandle{}, fmt.Errorf("unknown instance %s", targetID)
	}
	if b.submitErr != nil {
		return CommandHandle{}, b.submitErr
	}

	t.submitted = true
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	return CommandHandle{ID: "cmd-" + targetID, TargetID: targetID}, nil
}

func (t *fakeTransport) Poll(ctx context.Context, h CommandHandle) (PollStatus, error) {
	f := t.fleet
	f.mu.Lock()
	b := f.behaviors[h.TargetID]
	f.polls[h.TargetID]++
	n := f.polls[h.TargetID]
	f.mu.Unlock()

	if b.pollDelay > 0 {
		time.Sleep(b.pollDelay)
	}
	if b.panicOnPoll {
		panic("sdk blew up")
	}
	if b.pollErr != nil {
		return PollStatus{}, b.pollErr
	}
	if b.pendingPolls < 0 || n <= b.pendingPolls {
		return PollStatus{Detail: "InProgress"}, nil
	}
	if b.failed {
		return PollStatus{Terminal: true, Detail: b.detail}, nil
	}
	return PollStatus{Terminal: true, Success: true, Output: b.output, Detail: "Success"}, nil
}

func (t *fakeTransport) Close() error {
	f := t.fleet
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.closed {
		return errors.New("closed twice")
	}
	t.closed = true
	f.closed++
	if t.submitted {
		f.inFlight--
	}
	return nil
}

// recordingWait is a fake clock: it records requested delays and returns
// immediately.
type recordingWait struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingWait) wait(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingWait) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delays)
}

// progressRecorder collects progress notifications.
type progressRecorder struct {
	mu   sync.Mutex
	seen []Result
}

func (p *progressRecorder) TargetCompleted(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, r)
}

func (p *progressRecorder) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.seen))
	for _, r := range p.seen {
		ids = append(ids, r.Target.ID)
	}
	return ids
}
