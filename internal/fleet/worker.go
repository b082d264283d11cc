package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rileyhilliard/fleetmon/internal/logger"
)

// ErrCommandFailed is wrapped when the transport reports a terminal failure.
var ErrCommandFailed = errors.New("remote command failed")

// waitFunc blocks for d or until ctx is done.
type waitFunc func(ctx context.Context, d time.Duration) error

// timerWait is the production waitFunc: a timed wait that a cancelled
// context interrupts.
func timerWait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// worker drives a single target from submission to a terminal outcome.
type worker struct {
	factory  TransportFactory
	script   string
	interval time.Duration
	maxPolls int
	wait     waitFunc
	log      logger.Logger
}

// run collects from target and always returns a result; failures are
// folded into the outcome.
func (w *worker) run(ctx context.Context, target Target) Result {
	start := time.Now()
	outcome := w.collect(ctx, target)
	duration := time.Since(start)

	if outcome.OK() {
		w.log.Debug("target %s: %s in %s", target.ID, outcome, duration.Round(time.Millisecond))
	} else {
		w.log.Warn("target %s (%s): %s", target.ID, target.DisplayName(), outcome)
	}

	return Result{Target: target, Outcome: outcome, Duration: duration}
}

func (w *worker) collect(ctx context.Context, target Target) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = TransportFailed(fmt.Errorf("transport panicked: %v", r))
		}
	}()

	transport, err := w.factory.NewTransport(ctx)
	if err != nil {
		return TransportFailed(fmt.Errorf("creating transport: %w", err))
	}
	defer func() {
		if err := transport.Close(); err != nil {
			w.log.Debug("target %s: closing transport: %v", target.ID, err)
		}
	}()

	handle, err := transport.Submit(ctx, target.ID, w.script)
	if err != nil {
		return TransportFailed(fmt.Errorf("submitting command: %w", err))
	}
	w.log.Debug("target %s: submitted command %s", target.ID, handle.ID)

	for attempt := 1; attempt <= w.maxPolls; attempt++ {
		if err := w.wait(ctx, w.interval); err != nil {
			return TransportFailed(fmt.Errorf("waiting for command %s: %w", handle.ID, err))
		}

		status, err := transport.Poll(ctx, handle)
		if err != nil {
			return TransportFailed(fmt.Errorf("polling command %s (attempt %d): %w", handle.ID, attempt, err))
		}
		if !status.Terminal {
			continue
		}
		if !status.Success {
			return TransportFailed(fmt.Errorf("%w: status %s", ErrCommandFailed, statusDetail(status)))
		}

		sample, err := ParseMetrics(status.Output)
		if err != nil {
			return ParseFailed(err)
		}
		return Succeeded(sample)
	}

	return TimedOut(w.maxPolls)
}

func statusDetail(s PollStatus) string {
	if s.Detail == "" {
		return "failed"
	}
	return s.Detail
}
