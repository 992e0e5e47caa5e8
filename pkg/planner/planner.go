// Package planner drives a search algorithm over the planning graph of a
// problem and turns the solutions it finds into plans.
package planner

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/operator-framework/hasco/internal/metrics"
	"github.com/operator-framework/hasco/pkg/event"
	"github.com/operator-framework/hasco/pkg/htn"
	"github.com/operator-framework/hasco/pkg/planning"
	"github.com/operator-framework/hasco/pkg/search"
	"github.com/operator-framework/hasco/pkg/strips"
)

// ErrNoMorePlans is returned by NextPlan once the planner has terminated,
// whether the search space was exhausted, the planner was canceled or its
// timeout expired.
var ErrNoMorePlans = errors.New("no more plans")

type State int

const (
	Created State = iota
	Active
	Terminated
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Active:
		return "Active"
	case Terminated:
		return "Terminated"
	}
	return "Unknown"
}

// PlanFoundEvent is returned for every plan; the same event is published
// on the event bus.
type PlanFoundEvent = event.Event[event.PlanFound]

type Option func(p *Planner) error

// WithAlgorithm sets the search algorithm. The default is a uniform-cost
// best-first search.
func WithAlgorithm(factory search.Factory[Node]) Option {
	return func(p *Planner) error {
		p.factory = factory
		return nil
	}
}

// WithTimeout bounds the total time spent searching, counted from the
// first call to NextPlan.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Planner) error {
		if timeout < 0 {
			return errors.New("timeout must not be negative")
		}
		p.timeout = timeout
		return nil
	}
}

func WithSeed(seed int64) Option {
	return func(p *Planner) error {
		p.seed = seed
		return nil
	}
}

// WithSampleLimit bounds the actions computed on the first incremental
// expansion of a node.
func WithSampleLimit(n int) Option {
	return func(p *Planner) error {
		if n < 1 {
			return errors.New("sample limit must be positive")
		}
		p.sampleLimit = n
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) error {
		p.logger = logger
		return nil
	}
}

func WithEventBus(bus *event.Bus) Option {
	return func(p *Planner) error {
		p.bus = bus
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Planner) error {
		p.metrics = m
		return nil
	}
}

var defaults = []Option{
	func(p *Planner) error {
		if p.factory == nil {
			p.factory = search.BestFirstFactory[Node](search.PathLength[Node])
		}
		return nil
	},
	func(p *Planner) error {
		if p.logger == nil {
			p.logger = zap.NewNop()
		}
		return nil
	},
}

// Planner finds plans for one problem, one at a time.
type Planner struct {
	problem     *planning.Problem
	factory     search.Factory[Node]
	timeout     time.Duration
	seed        int64
	sampleLimit int
	logger      *zap.Logger
	bus         *event.Bus
	metrics     *metrics.Metrics
	events      *event.Factory[event.PlanFound]
	graph       search.Graph[Node]

	// run serializes NextPlan; mu guards the fields below and is never held
	// while searching, so Cancel does not wait for a running search.
	run       sync.Mutex
	mu        sync.Mutex
	state     State
	algorithm search.Algorithm[Node]
	deadline  time.Time
}

// New validates problem and prepares a planner for it. Validation failures
// are returned as *planning.ModelingError.
func New(problem *planning.Problem, opts ...Option) (*Planner, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	p := &Planner{
		problem: problem,
		events:  event.NewFactory[event.PlanFound]("planner"),
	}
	for _, option := range append(opts, defaults...) {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewSource(p.seed))
	if problem.IsHierarchical() {
		hopts := []htn.Option{htn.WithRand(rng), htn.WithLogger(p.logger), htn.WithEventBus(p.bus), htn.WithMetrics(p.metrics)}
		if p.sampleLimit > 0 {
			hopts = append(hopts, htn.WithSampleLimit(p.sampleLimit))
		}
		g, err := htn.NewGraphGenerator(problem, hopts...)
		if err != nil {
			return nil, err
		}
		p.graph = graph[*htn.Node]{generator: g}
	} else {
		sopts := []strips.Option{strips.WithRand(rng), strips.WithLogger(p.logger), strips.WithEventBus(p.bus), strips.WithMetrics(p.metrics)}
		if p.sampleLimit > 0 {
			sopts = append(sopts, strips.WithSampleLimit(p.sampleLimit))
		}
		g, err := strips.NewGraphGenerator(problem, sopts...)
		if err != nil {
			return nil, err
		}
		p.graph = graph[*strips.Node]{generator: g}
	}
	return p, nil
}

func (p *Planner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// start moves a created planner to Active. It returns false if the
// planner has terminated.
func (p *Planner) start() (search.Algorithm[Node], time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case Created:
		p.algorithm = p.factory(p.graph,
			search.WithRand(rand.New(rand.NewSource(p.seed+1))),
			search.WithLogger(p.logger))
		if p.timeout > 0 {
			p.deadline = time.Now().Add(p.timeout)
		}
		p.state = Active
		p.logger.Debug("planner started", zap.Bool("hierarchical", p.problem.IsHierarchical()), zap.Duration("timeout", p.timeout))
	case Terminated:
		return nil, time.Time{}, false
	case Active:
	}
	return p.algorithm, p.deadline, true
}

func (p *Planner) terminate(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Terminated {
		return
	}
	p.state = Terminated
	p.logger.Debug("planner terminated", zap.String("reason", reason))
}

// NextPlan searches for the next plan. It returns ErrNoMorePlans once the
// search space is exhausted, after Cancel, after the planner's timeout and
// when ctx is done; the planner is terminated in all these cases. Any
// other error, such as a *planning.ModelingError found while grounding,
// terminates the planner as well and is returned as is.
func (p *Planner) NextPlan(ctx context.Context) (*PlanFoundEvent, error) {
	p.run.Lock()
	defer p.run.Unlock()

	algorithm, deadline, ok := p.start()
	if !ok {
		return nil, ErrNoMorePlans
	}
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	path, err := algorithm.NextSolution(ctx)
	switch {
	case err == nil:
	case errors.Is(err, search.ErrExhausted):
		p.terminate("exhausted")
		return nil, ErrNoMorePlans
	case errors.Is(err, search.ErrCanceled), errors.Is(err, context.Canceled):
		p.terminate("canceled")
		return nil, ErrNoMorePlans
	case errors.Is(err, context.DeadlineExceeded):
		p.terminate("timeout")
		return nil, ErrNoMorePlans
	default:
		p.terminate("failed")
		return nil, err
	}

	plan := extractPlan(path.Nodes)
	steps := make([]string, len(plan.Actions))
	for i, a := range plan.Actions {
		steps[i] = a.String()
	}
	evt := p.events.NewEvent(event.PlanFound{Plan: plan, Steps: steps, Score: path.Score})
	p.metrics.PlanFound()
	p.bus.Publish(evt)
	p.logger.Debug("plan found", zap.Int("length", plan.Len()), zap.Float64("score", path.Score))
	return evt, nil
}

// Cancel terminates the planner. A running NextPlan returns
// ErrNoMorePlans. Cancel is idempotent.
func (p *Planner) Cancel() {
	p.mu.Lock()
	algorithm := p.algorithm
	p.mu.Unlock()
	if algorithm != nil {
		algorithm.Cancel()
	}
	p.terminate("canceled")
}
