package hasco

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/operator-framework/hasco/internal/metrics"
	"github.com/operator-framework/hasco/pkg/components"
	"github.com/operator-framework/hasco/pkg/event"
	"github.com/operator-framework/hasco/pkg/planner"
	"github.com/operator-framework/hasco/pkg/search"
	"github.com/operator-framework/hasco/pkg/twophase"
)

type Option func(s *Search) error

func WithSeed(seed int64) Option {
	return func(s *Search) error {
		s.seed = seed
		return nil
	}
}

// WithAlgorithm replaces the randomized depth-first search that completes
// partial configurations.
func WithAlgorithm(factory search.Factory[planner.Node]) Option {
	return func(s *Search) error {
		s.factory = factory
		return nil
	}
}

// WithEvaluationTimeout bounds every single evaluation. Zero means no
// bound besides the context of Run.
func WithEvaluationTimeout(timeout time.Duration) Option {
	return func(s *Search) error {
		if timeout < 0 {
			return errors.New("evaluation timeout must not be negative")
		}
		s.timeout = timeout
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Search) error {
		s.logger = logger
		return nil
	}
}

func WithEventBus(bus *event.Bus) Option {
	return func(s *Search) error {
		s.bus = bus
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Search) error {
		s.metrics = m
		return nil
	}
}

var defaults = []Option{
	func(s *Search) error {
		if s.factory == nil {
			s.factory = search.RandomizedDepthFirstFactory[planner.Node]
		}
		return nil
	},
	func(s *Search) error {
		if s.logger == nil {
			s.logger = zap.NewNop()
		}
		return nil
	},
}

// Search enumerates the instances of an interface by planning and scores
// each one with an evaluator. It is a twophase.CandidateSource.
type Search struct {
	repo      *components.Repository
	reduction *Reduction
	evaluator twophase.Evaluator
	seed      int64
	factory   search.Factory[planner.Node]
	timeout   time.Duration
	logger    *zap.Logger
	bus       *event.Bus
	metrics   *metrics.Metrics
	planner   *planner.Planner
}

var _ twophase.CandidateSource = &Search{}

func NewSearch(repo *components.Repository, requested string, evaluator twophase.Evaluator, opts ...Option) (*Search, error) {
	if evaluator == nil {
		return nil, errors.New("an evaluator is required")
	}
	reduction, err := Reduce(repo, requested)
	if err != nil {
		return nil, err
	}
	s := &Search{repo: repo, reduction: reduction, evaluator: evaluator}
	for _, option := range append(opts, defaults...) {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	s.planner, err = planner.New(reduction.Problem,
		planner.WithAlgorithm(s.factory),
		planner.WithSeed(s.seed),
		planner.WithLogger(s.logger),
		planner.WithEventBus(s.bus),
		planner.WithMetrics(s.metrics))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Search) Reduction() *Reduction {
	return s.reduction
}

// Run plans instances until the planner runs out of plans, ctx is done
// or Cancel is called, and emits every new instance that could be scored.
// Instances combining conflicting components are never evaluated.
func (s *Search) Run(ctx context.Context, emit func(twophase.Candidate)) error {
	seen := map[string]struct{}{}
	for {
		evt, err := s.planner.NextPlan(ctx)
		if errors.Is(err, planner.ErrNoMorePlans) {
			return ctx.Err()
		}
		if err != nil {
			return err
		}
		instance, err := DecodePlan(evt.Data().Plan)
		if err != nil {
			return err
		}
		key := instance.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if err := instance.Validate(s.repo); err != nil {
			s.logger.Debug("skipping invalid instance", zap.String("instance", key), zap.Error(err))
			continue
		}

		start := time.Now()
		score, err := s.evaluate(ctx, instance)
		elapsed := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("skipping instance that could not be evaluated", zap.String("instance", key), zap.Error(err))
			continue
		}
		emit(twophase.Candidate{Instance: instance, Score: score, EvaluationTime: elapsed})
	}
}

func (s *Search) evaluate(ctx context.Context, instance *components.Instance) (score float64, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", twophase.ErrEvaluatorPanicked, r)
		}
	}()
	return s.evaluator.Evaluate(ctx, instance)
}

// Cancel stops a running Run after the current evaluation.
func (s *Search) Cancel() {
	s.planner.Cancel()
}
