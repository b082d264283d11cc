package fleet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/logger"
)

// Defaults for the collection knobs.
const (
	DefaultMaxConcurrency = 10
	DefaultPollInterval   = 2 * time.Second
	DefaultMaxPolls       = 10
)

// Config holds the per-worker settings of a Coordinator.
type Config struct {
	PollInterval time.Duration // Delay before each status poll
	MaxPolls     int           // Polls before a target times out
	Script       string        // Script sent to every target (DiagnosticScript if empty)
	Progress     Progress      // Completion notifications (NoProgress if nil)
	Logger       logger.Logger // Defaults to logger.Default()
}

// DefaultConfig returns a Config with the standard poll budget.
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		MaxPolls:     DefaultMaxPolls,
		Script:       DiagnosticScript,
	}
}

// Coordinator fans collection out across targets with bounded parallelism.
type Coordinator struct {
	worker   *worker
	progress Progress
	log      logger.Logger
	cfgErr   error
}

// NewCoordinator creates a coordinator whose workers obtain their own
// transport from factory.
func NewCoordinator(factory TransportFactory, cfg Config) *Coordinator {
	if cfg.Script == "" {
		cfg.Script = DiagnosticScript
	}
	if cfg.Progress == nil {
		cfg.Progress = NoProgress
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	return &Coordinator{
		worker: &worker{
			factory:  factory,
			script:   cfg.Script,
			interval: cfg.PollInterval,
			maxPolls: cfg.MaxPolls,
			wait:     timerWait,
			log:      cfg.Logger,
		},
		progress: cfg.Progress,
		log:      cfg.Logger,
		cfgErr:   validateConfig(factory, cfg),
	}
}

func validateConfig(factory TransportFactory, cfg Config) error {
	if factory == nil {
		return errors.New(errors.ErrConfig,
			"No transport configured for collection",
			"Set transport to 'ssm' or 'ssh' in the config file.")
	}
	if cfg.MaxPolls <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("max_polls must be at least 1, got %d", cfg.MaxPolls),
			"Set collection.max_polls to a positive number (default 10).")
	}
	if cfg.PollInterval < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("poll_interval can't be negative, got %s", cfg.PollInterval),
			"Set collection.poll_interval to a duration like 2s.")
	}
	return nil
}

// Collect runs one worker per target, at most maxConcurrency at a time, and
// returns once every target has a terminal outcome. results[i] belongs to
// targets[i]. The only error is a configuration error, reported before any
// work starts.
func (c *Coordinator) Collect(ctx context.Context, targets []Target, maxConcurrency int) ([]Result, error) {
	if maxConcurrency <= 0 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("max concurrency must be at least 1, got %d", maxConcurrency),
			"Set collection.max_concurrency to a positive number (default 10).")
	}
	if c.cfgErr != nil {
		return nil, c.cfgErr
	}

	results := make([]Result, len(targets))
	if len(targets) == 0 {
		return results, nil
	}

	startTime := time.Now()

	type job struct {
		index  int
		target Target
	}
	queue := make(chan job, len(targets))
	for i, t := range targets {
		queue <- job{index: i, target: t}
	}
	close(queue)

	numWorkers := min(maxConcurrency, len(targets))
	c.log.Debug("collecting from %d targets with %d workers", len(targets), numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				r := c.worker.run(ctx, j.target)
				results[j.index] = r
				c.notify(r)
			}
		}()
	}
	wg.Wait()

	failed := 0
	for i := range results {
		if !results[i].Outcome.OK() {
			failed++
		}
	}
	c.log.Info("collected %d targets in %s (%d failed)",
		len(results), time.Since(startTime).Round(time.Millisecond), failed)

	return results, nil
}

// notify reports r to the progress sink. A panicking sink is logged and
// never takes the worker down with it.
func (c *Coordinator) notify(r Result) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Warn("progress notification for %s panicked: %v", r.Target.ID, p)
		}
	}()
	c.progress.TargetCompleted(r)
}
