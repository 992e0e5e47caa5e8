// Package twophase implements an anytime configuration optimizer. Phase 1
// collects scored candidates from a search until the remaining budget is
// just enough for phase 2, which re-evaluates a small pool of the best
// candidates concurrently and picks the final one.
package twophase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/operator-framework/hasco/internal/metrics"
	"github.com/operator-framework/hasco/pkg/event"
)

var (
	// ErrNoCandidates is returned by Run when phase 1 produced nothing.
	ErrNoCandidates = errors.New("no candidate found")
	// ErrEvaluatorPanicked wraps the value an evaluator panicked with.
	ErrEvaluatorPanicked = errors.New("evaluator panicked")
)

type Option func(c *Controller) error

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) error {
		c.logger = logger
		return nil
	}
}

func WithEventBus(bus *event.Bus) Option {
	return func(c *Controller) error {
		c.bus = bus
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) error {
		c.metrics = m
		return nil
	}
}

var defaults = []Option{
	func(c *Controller) error {
		if c.logger == nil {
			c.logger = zap.NewNop()
		}
		return nil
	},
}

// Result describes a finished run.
type Result struct {
	// Selected is the final choice.
	Selected Candidate
	// Reevaluated is true when Selected won on its phase 2 score rather
	// than by falling back to Best.
	Reevaluated bool
	// Best is the best candidate of phase 1.
	Best Candidate
	// Scores holds the phase 2 scores by candidate key.
	Scores map[string]float64
	// Candidates holds every phase 1 candidate in discovery order.
	Candidates []Candidate
	Phase1     time.Duration
	Phase2     time.Duration
}

type Controller struct {
	source   CandidateSource
	selector Evaluator
	cfg      Config
	logger   *zap.Logger
	bus      *event.Bus
	metrics  *metrics.Metrics

	solutions *event.Factory[event.SolutionFound]
	started   *event.Factory[event.PhaseStarted]
	completed *event.Factory[event.PhaseCompleted]
}

// New returns a controller drawing candidates from source and
// re-evaluating them with selector.
func New(source CandidateSource, selector Evaluator, cfg Config, opts ...Option) (*Controller, error) {
	if source == nil || selector == nil {
		return nil, fmt.Errorf("%w: source and selector are required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		source:    source,
		selector:  selector,
		cfg:       cfg,
		solutions: event.NewFactory[event.SolutionFound]("twophase"),
		started:   event.NewFactory[event.PhaseStarted]("twophase"),
		completed: event.NewFactory[event.PhaseCompleted]("twophase"),
	}
	for _, option := range append(opts, defaults...) {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Run executes both phases within the configured timeout, or the deadline
// of ctx if that is earlier. It only fails if phase 1 found no candidate;
// every other shortfall degrades to the best phase 1 candidate.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	deadline := start.Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	e := c.explore(ctx, deadline)
	res := &Result{Candidates: e.snapshot(), Phase1: time.Since(start)}
	c.phaseCompleted(event.PhaseSearch, res.Phase1, len(res.Candidates))
	best := e.best.Load()
	if best == nil {
		return res, ErrNoCandidates
	}
	res.Best, res.Selected = *best, *best

	remaining := time.Until(deadline)
	if remaining <= 0 || ctx.Err() != nil {
		c.logger.Info("no time left for the selection phase, returning the best candidate of phase 1",
			zap.String("candidate", best.Key()), zap.Float64("score", best.Score))
		return res, nil
	}

	phase2 := time.Now()
	c.bus.Publish(c.started.NewEvent(event.PhaseStarted{Phase: event.PhaseSelection}))
	pool := selectPool(res.Candidates, *best, c.cfg, rand.New(rand.NewSource(c.cfg.Seed)))
	pool = trimPool(pool, remaining, c.cfg)
	c.logger.Debug("selection phase started", zap.Int("pool", len(pool)), zap.Duration("remaining", remaining))

	res.Scores = c.reevaluate(ctx, pool, deadline)
	res.Selected, res.Reevaluated = choose(pool, *best, res.Scores)
	res.Phase2 = time.Since(phase2)
	c.phaseCompleted(event.PhaseSelection, res.Phase2, len(pool))
	c.logger.Info("configuration selected",
		zap.String("candidate", res.Selected.Key()),
		zap.Float64("score", res.Selected.Score),
		zap.Bool("reevaluated", res.Reevaluated))
	return res, nil
}

func (c *Controller) phaseCompleted(phase event.Phase, d time.Duration, candidates int) {
	c.metrics.PhaseCompleted(string(phase), d)
	c.bus.Publish(c.completed.NewEvent(event.PhaseCompleted{Phase: phase, Duration: d, Candidates: candidates}))
}

// exploration is the state shared between the source and the monitor
// during phase 1.
type exploration struct {
	best  atomic.Pointer[Candidate]
	mu    sync.Mutex
	queue []Candidate
	found chan struct{}
}

// offer records c and reports whether it became the new best.
func (e *exploration) offer(c Candidate) bool {
	e.mu.Lock()
	e.queue = append(e.queue, c)
	e.mu.Unlock()

	defer func() {
		select {
		case e.found <- struct{}{}:
		default:
		}
	}()
	if math.IsNaN(c.Score) {
		return false
	}
	for {
		cur := e.best.Load()
		if cur != nil && cur.Score <= c.Score {
			return false
		}
		if e.best.CompareAndSwap(cur, &c) {
			return true
		}
	}
}

func (e *exploration) snapshot() []Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Candidate(nil), e.queue...)
}

func (c *Controller) explore(ctx context.Context, deadline time.Time) *exploration {
	e := &exploration{found: make(chan struct{}, 1)}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	c.bus.Publish(c.started.NewEvent(event.PhaseStarted{Phase: event.PhaseSearch}))

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		c.monitor(ctx, e, deadline, done, func() {
			cancel()
			c.source.Cancel()
		})
	}()

	err := c.source.Run(ctx, func(cand Candidate) {
		improved := e.offer(cand)
		c.metrics.CandidateFound()
		c.bus.Publish(c.solutions.NewEvent(event.SolutionFound{
			Candidate:      cand.Key(),
			Score:          cand.Score,
			EvaluationTime: cand.EvaluationTime,
			Best:           improved,
		}))
		if improved {
			c.logger.Debug("new best candidate", zap.String("candidate", cand.Key()), zap.Float64("score", cand.Score))
		}
	})
	close(done)
	<-stopped

	switch {
	case err == nil:
	case isCancellation(err):
		c.logger.Debug("search phase interrupted", zap.Error(err))
	default:
		c.logger.Error("candidate source failed", zap.Error(err))
	}
	return e
}

// monitor cancels phase 1 once the time left before deadline is no longer
// enough for phase 2 over the candidates found so far. The cutoff is
// recomputed whenever a candidate arrives.
func (c *Controller) monitor(ctx context.Context, e *exploration, deadline time.Time, done <-chan struct{}, stop func()) {
	timer := time.NewTimer(c.cutoff(e, deadline))
	defer timer.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-e.found:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(c.cutoff(e, deadline))
		case <-timer.C:
			c.logger.Info("stopping the search phase to leave time for selection", zap.Duration("remaining", time.Until(deadline)))
			stop()
			return
		}
	}
}

// cutoff returns the time until phase 1 has to stop.
func (c *Controller) cutoff(e *exploration, deadline time.Time) time.Duration {
	reserve := c.cfg.SafetyMargin
	if best := e.best.Load(); best != nil {
		pool := selectPool(e.snapshot(), *best, c.cfg, rand.New(rand.NewSource(c.cfg.Seed)))
		makespan, post := estimate(pool, c.cfg)
		reserve += makespan + post
	}
	return time.Until(deadline) - reserve
}

// reevaluate scores pool on at most cfg.CPUs concurrent workers and
// returns the scores that were obtained.
func (c *Controller) reevaluate(ctx context.Context, pool []Candidate, deadline time.Time) map[string]float64 {
	var mu sync.Mutex
	scores := make(map[string]float64, len(pool))
	workers := int64(c.cfg.CPUs)
	sem := semaphore.NewWeighted(workers)

	for _, cand := range pool {
		if err := sem.Acquire(ctx, 1); err != nil {
			c.logger.Debug("selection phase interrupted", zap.Error(err))
			break
		}
		expected := expectedEvaluation(cand, c.cfg)
		if time.Now().Add(expected + expectedPostProcessing(cand, c.cfg)).After(deadline) {
			sem.Release(1)
			c.metrics.Evaluated(metrics.Skipped)
			c.logger.Debug("skipping candidate that cannot finish in time",
				zap.String("candidate", cand.Key()), zap.Duration("expected", expected))
			continue
		}
		go func() {
			defer sem.Release(1)
			score, err := c.evaluate(ctx, cand, expected, deadline)
			switch {
			case err == nil:
				mu.Lock()
				scores[cand.Key()] = score
				mu.Unlock()
				c.metrics.Evaluated(metrics.Succeeded)
			case errors.Is(err, context.DeadlineExceeded):
				c.metrics.Evaluated(metrics.TimedOut)
				c.logger.Debug("evaluation timed out", zap.String("candidate", cand.Key()))
			case errors.Is(err, context.Canceled):
				c.metrics.Evaluated(metrics.Canceled)
				c.logger.Debug("evaluation canceled", zap.String("candidate", cand.Key()))
			default:
				c.metrics.Evaluated(metrics.Failed)
				c.logger.Error("evaluation failed", zap.String("candidate", cand.Key()), zap.Error(err))
			}
		}()
	}

	// Every worker holds one permit until it is done.
	_ = sem.Acquire(context.Background(), workers)
	sem.Release(workers)
	return scores
}

// evaluationTimeoutFloor bounds phase 2 evaluations of candidates that
// took no measurable time in phase 1.
const evaluationTimeoutFloor = 100 * time.Millisecond

func (c *Controller) evaluate(ctx context.Context, cand Candidate, expected time.Duration, deadline time.Time) (score float64, err error) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	timeout := max(time.Duration(float64(expected)*(1+c.cfg.Tolerance)), c.cfg.MinEvaluationTimeout, evaluationTimeoutFloor)
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEvaluatorPanicked, r)
		}
	}()

	score, err = c.selector.Evaluate(ctx, cand.Instance)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if math.IsNaN(score) {
		return 0, errors.New("evaluator returned NaN")
	}
	return score, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
