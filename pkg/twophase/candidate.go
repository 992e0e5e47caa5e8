package twophase

import (
	"context"
	"time"

	"github.com/operator-framework/hasco/pkg/components"
)

// Candidate is a component instance scored during phase 1. Lower scores
// are better.
type Candidate struct {
	Instance       *components.Instance
	Score          float64
	EvaluationTime time.Duration
}

func (c Candidate) Key() string {
	return c.Instance.Key()
}

// Evaluator scores an instance. It is called from several goroutines at
// once and must return promptly once ctx is done.
type Evaluator interface {
	Evaluate(ctx context.Context, instance *components.Instance) (float64, error)
}

type EvaluatorFunc func(ctx context.Context, instance *components.Instance) (float64, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, instance *components.Instance) (float64, error) {
	return f(ctx, instance)
}

// CandidateSource produces scored candidates. Run blocks until the source
// is exhausted, ctx is done or Cancel is called, and may call emit from
// several goroutines. Cancel must be idempotent.
type CandidateSource interface {
	Run(ctx context.Context, emit func(Candidate)) error
	Cancel()
}
