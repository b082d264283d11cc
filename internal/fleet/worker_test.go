package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetmon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(f TransportFactory, clock *recordingWait) *worker {
	return &worker{
		factory:  f,
		script:   DiagnosticScript,
		interval: 2 * time.Second,
		maxPolls: 10,
		wait:     clock.wait,
		log:      logger.NewBufferLogger(),
	}
}

func TestWorker_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		behavior  behavior
		wantKind  OutcomeKind
		wantPolls int
		wantErr   error
	}{
		{
			name:      "immediate success",
			behavior:  succeedWith(20, 45),
			wantKind:  OutcomeSuccess,
			wantPolls: 1,
		},
		{
			name:      "success after pending polls",
			behavior:  behavior{pendingPolls: 3, output: "12%\n30"},
			wantKind:  OutcomeSuccess,
			wantPolls: 4,
		},
		{
			name:      "success on the last allowed poll",
			behavior:  behavior{pendingPolls: 9, output: "12%\n30"},
			wantKind:  OutcomeSuccess,
			wantPolls: 10,
		},
		{
			name:      "submit error",
			behavior:  behavior{submitErr: errors.New("AccessDeniedException")},
			wantKind:  OutcomeTransportError,
			wantPolls: 0,
		},
		{
			name:      "poll error",
			behavior:  behavior{pendingPolls: 1, pollErr: errors.New("throttled")},
			wantKind:  OutcomeTransportError,
			wantPolls: 1,
		},
		{
			name:      "terminal failure",
			behavior:  behavior{pendingPolls: 2, failed: true, detail: "Failed"},
			wantKind:  OutcomeTransportError,
			wantPolls: 3,
			wantErr:   ErrCommandFailed,
		},
		{
			name:      "never terminal",
			behavior:  behavior{pendingPolls: -1},
			wantKind:  OutcomeTimeout,
			wantPolls: 10,
			wantErr:   ErrTimeout,
		},
		{
			name:      "garbage output",
			behavior:  behavior{output: "df: /: No such file or directory"},
			wantKind:  OutcomeParseError,
			wantPolls: 1,
			wantErr:   ErrMalformedOutput,
		},
		{
			name:      "transport panic",
			behavior:  behavior{panicOnPoll: true},
			wantKind:  OutcomeTransportError,
			wantPolls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFleet(map[string]behavior{"i-1": tt.behavior})
			clock := &recordingWait{}
			w := newTestWorker(f, clock)

			r := w.run(context.Background(), Target{ID: "i-1", Name: "web"})

			assert.Equal(t, Target{ID: "i-1", Name: "web"}, r.Target)
			assert.Equal(t, tt.wantKind, r.Outcome.Kind(), "outcome: %s", r.Outcome)
			assert.Equal(t, tt.wantPolls, f.pollCount("i-1"))
			assert.Equal(t, tt.wantPolls, clock.count(), "one wait before every poll")
			assert.Equal(t, 1, f.created)
			assert.Equal(t, 1, f.closed, "transport is released once the outcome is known")

			_, hasSample := r.Outcome.Sample()
			if tt.wantKind == OutcomeSuccess {
				assert.True(t, hasSample)
				assert.NoError(t, r.Outcome.Err())
			} else {
				assert.False(t, hasSample)
				assert.Error(t, r.Outcome.Err())
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, r.Outcome.Err(), tt.wantErr)
			}
		})
	}
}

func TestWorker_SuccessSample(t *testing.T) {
	f := newFakeFleet(map[string]behavior{"i-1": succeedWith(20, 45)})
	w := newTestWorker(f, &recordingWait{})

	r := w.run(context.Background(), Target{ID: "i-1"})

	sample, ok := r.Outcome.Sample()
	require.True(t, ok)
	assert.Equal(t, MetricSample{DiskPercent: 20, MemPercent: 45}, sample)
	assert.Equal(t, []string{DiagnosticScript}, f.scripts)
}

func TestWorker_TimeoutUsesExactBudget(t *testing.T) {
	f := newFakeFleet(map[string]behavior{"i-2": {pendingPolls: -1}})
	clock := &recordingWait{}
	w := newTestWorker(f, clock)
	w.maxPolls = 4
	w.interval = 3 * time.Second

	r := w.run(context.Background(), Target{ID: "i-2"})

	assert.Equal(t, OutcomeTimeout, r.Outcome.Kind())
	assert.Equal(t, 4, f.pollCount("i-2"))
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second}, clock.delays)
}

func TestWorker_FactoryError(t *testing.T) {
	f := newFakeFleet(nil)
	f.factoryErr = errors.New("no credentials")
	w := newTestWorker(f, &recordingWait{})

	r := w.run(context.Background(), Target{ID: "i-1"})

	assert.Equal(t, OutcomeTransportError, r.Outcome.Kind())
	assert.Contains(t, r.Outcome.Err().Error(), "no credentials")
	assert.Equal(t, 0, f.closed)
}

func TestWorker_CancelledDuringWait(t *testing.T) {
	f := newFakeFleet(map[string]behavior{"i-1": {pendingPolls: -1}})
	w := newTestWorker(f, &recordingWait{})
	w.wait = timerWait
	w.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan Result, 1)
	go func() { done <- w.run(ctx, Target{ID: "i-1"}) }()

	select {
	case r := <-done:
		assert.Equal(t, OutcomeTransportError, r.Outcome.Kind())
		assert.ErrorIs(t, r.Outcome.Err(), context.Canceled)
		assert.Equal(t, 0, f.pollCount("i-1"))
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop waiting after cancellation")
	}
}

func TestTimerWait(t *testing.T) {
	t.Run("elapses", func(t *testing.T) {
		require.NoError(t, timerWait(context.Background(), time.Millisecond))
	})

	t.Run("zero delay", func(t *testing.T) {
		require.NoError(t, timerWait(context.Background(), 0))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, timerWait(ctx, time.Hour), context.Canceled)
	})
}
