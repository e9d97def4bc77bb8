// Package wait polls element handles until they satisfy a condition or a
// timeout elapses.
package wait

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/element"
)

// Mode selects how a set of handles is polled.
type Mode int

const (
	// Concurrent polls every handle at once against one shared deadline.
	Concurrent Mode = iota
	// Sequential polls handles one after another, each with its own timeout.
	// Slow or single-threaded drivers need this.
	Sequential
)

func (m Mode) String() string {
	if m == Sequential {
		return config.WaitModeSequential
	}
	return config.WaitModeConcurrent
}

// ParseMode converts a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.WaitModeConcurrent, "":
		return Concurrent, nil
	case config.WaitModeSequential:
		return Sequential, nil
	default:
		return Concurrent, fmt.Errorf("unknown wait mode %q", s)
	}
}

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultTimeout      = 8 * time.Second
)

// Options configures an Engine.
type Options struct {
	PollInterval time.Duration
	// MaxChecksPerSecond caps condition checks across all pollers of the
	// engine. Zero disables the cap.
	MaxChecksPerSecond float64
	AppearTimeout      time.Duration
	DisappearTimeout   time.Duration
	Mode               Mode
}

// OptionsFromConfig maps the wait section of the configuration.
func OptionsFromConfig(cfg config.WaitConfig) (Options, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		PollInterval:       cfg.PollInterval,
		MaxChecksPerSecond: cfg.MaxChecksPerSecond,
		AppearTimeout:      cfg.AppearTimeout,
		DisappearTimeout:   cfg.DisappearTimeout,
		Mode:               mode,
	}, nil
}

// Engine runs wait calls. It holds no per-call state and may be shared by
// scenarios running in parallel.
type Engine struct {
	logger  *zap.Logger
	opts    Options
	limiter *rate.Limiter
}

// NewEngine creates an Engine.
func NewEngine(logger *zap.Logger, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.AppearTimeout <= 0 {
		opts.AppearTimeout = defaultTimeout
	}
	if opts.DisappearTimeout <= 0 {
		opts.DisappearTimeout = defaultTimeout
	}
	e := &Engine{
		logger: logger.Named("wait"),
		opts:   opts,
	}
	if opts.MaxChecksPerSecond > 0 {
		burst := int(opts.MaxChecksPerSecond)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(opts.MaxChecksPerSecond), burst)
	}
	return e
}

// Options returns the engine's configuration.
func (e *Engine) Options() Options { return e.opts }

// Until blocks until every handle satisfies cond, or fails with a
// *TimeoutError naming a handle that did not. Cancelling ctx aborts the wait
// with the context's error.
func (e *Engine) Until(ctx context.Context, handles []element.Handle, cond Condition, timeout time.Duration, mode Mode) error {
	if len(handles) == 0 {
		return nil
	}
	if timeout <= 0 {
		return fmt.Errorf("wait for %s: timeout must be positive, got %s", cond.Name, timeout)
	}

	start := time.Now()
	log := e.logger.With(
		zap.String("condition", cond.Name),
		zap.Int("handles", len(handles)),
		zap.Stringer("mode", mode),
		zap.Duration("timeout", timeout),
	)
	log.Debug("Waiting for elements.")

	var err error
	if mode == Sequential {
		err = e.sequential(ctx, handles, cond, timeout)
	} else {
		err = e.concurrent(ctx, handles, cond, timeout)
	}

	if err != nil {
		log.Debug("Wait failed.", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return err
	}
	log.Debug("Wait satisfied.", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (e *Engine) concurrent(ctx context.Context, handles []element.Handle, cond Condition, timeout time.Duration) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The first poller to return an error cancels the rest, so the group
	// reports the first handle observed failing.
	g, groupCtx := errgroup.WithContext(deadlineCtx)
	for _, h := range handles {
		g.Go(func() error {
			return e.poll(ctx, groupCtx, h, cond, timeout, Concurrent)
		})
	}
	return g.Wait()
}

func (e *Engine) sequential(ctx context.Context, handles []element.Handle, cond Condition, timeout time.Duration) error {
	for _, h := range handles {
		handleCtx, cancel := context.WithTimeout(ctx, timeout)
		err := e.poll(ctx, handleCtx, h, cond, timeout, Sequential)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// poll checks h until cond holds or pollCtx ends. parent distinguishes a
// caller cancellation from the wait budget running out.
func (e *Engine) poll(parent, pollCtx context.Context, h element.Handle, cond Condition, timeout time.Duration, mode Mode) error {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		if e.throttle(pollCtx) == nil {
			ok, err := cond.Check(pollCtx, h)
			if err == nil && ok {
				return nil
			}
			// Driver errors (stale nodes, detached frames) only mean "not yet".
			if err != nil && pollCtx.Err() == nil {
				lastErr = err
				e.logger.Debug("Condition check errored; retrying.",
					zap.String("element", h.Describe()),
					zap.String("condition", cond.Name),
					zap.Error(err))
			}
		}

		select {
		case <-pollCtx.Done():
			if parent.Err() != nil {
				return fmt.Errorf("wait for %s %s aborted: %w", h.Describe(), cond.Name, parent.Err())
			}
			return &TimeoutError{
				Handle:    h.Describe(),
				Condition: cond.Name,
				Timeout:   timeout,
				Mode:      mode,
				LastErr:   lastErr,
			}
		case <-ticker.C:
		}
	}
}

func (e *Engine) throttle(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// Appeared waits for the primary elements of inst to become visible, then
// does the same for each mandatory nested block, so a composite page counts
// as appeared only when all of its required parts have.
func (e *Engine) Appeared(ctx context.Context, inst *element.Instance) error {
	if err := e.Until(ctx, inst.PrimaryElements(), Visible, e.opts.AppearTimeout, e.opts.Mode); err != nil {
		return fmt.Errorf("%q has not appeared: %w", inst.Name(), err)
	}
	for _, block := range inst.MandatoryBlocks() {
		if err := e.Appeared(ctx, block); err != nil {
			return err
		}
	}
	e.logger.Debug("Appeared.", zap.String("page", inst.Name()))
	return nil
}

// Disappeared waits for the primary elements of inst to stop being visible.
// Nested blocks are not visited separately; their mandatory leaves are already
// part of the primary set.
func (e *Engine) Disappeared(ctx context.Context, inst *element.Instance) error {
	if err := e.Until(ctx, inst.PrimaryElements(), Absent, e.opts.DisappearTimeout, e.opts.Mode); err != nil {
		return fmt.Errorf("%q has not disappeared: %w", inst.Name(), err)
	}
	e.logger.Debug("Disappeared.", zap.String("page", inst.Name()))
	return nil
}
