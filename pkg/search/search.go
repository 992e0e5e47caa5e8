// Package search contains pull-based search algorithms over lazily
// generated graphs.
package search

import (
	"context"
	"errors"
	"math/rand"

	"go.uber.org/zap"
)

var (
	// ErrExhausted is returned by NextSolution once the reachable graph
	// holds no further solution.
	ErrExhausted = errors.New("search space exhausted")

	// ErrCanceled is returned by NextSolution after Cancel.
	ErrCanceled = errors.New("search canceled")
)

// Node is a vertex of a search graph. Nodes with equal IDs are the same
// vertex, even when they were reached on different paths.
type Node interface {
	ID() int
}

// Graph generates a search graph on demand.
//
// Successors returns every successor of n and may be called at most once per
// node. Successor returns a single successor not returned before, choosing
// among the remaining ones by i, or false when n has none left.
type Graph[N Node] interface {
	Root() (N, error)
	Successors(n N) ([]N, error)
	Successor(n N, i int) (N, bool, error)
	IsGoal(n N) (bool, error)
}

// Path is a solution: the nodes from the root to a goal node.
type Path[N Node] struct {
	Nodes []N
	Score float64
}

func (p Path[N]) Goal() N {
	return p.Nodes[len(p.Nodes)-1]
}

// Algorithm produces solutions one at a time.
type Algorithm[N Node] interface {
	// NextSolution blocks until the next solution is found. It returns
	// ErrExhausted when there is none, ErrCanceled after Cancel and the
	// context's error when ctx is done.
	NextSolution(ctx context.Context) (Path[N], error)

	// Cancel stops the search. It may be called any number of times and
	// from any goroutine.
	Cancel()
}

// Factory creates an algorithm for a graph.
type Factory[N Node] func(graph Graph[N], opts ...Option) Algorithm[N]

type settings struct {
	rng    *rand.Rand
	logger *zap.Logger
}

type Option func(s *settings)

// WithRand sets the source of randomness; algorithms that need one and get
// none use a fixed seed.
func WithRand(rng *rand.Rand) Option {
	return func(s *settings) {
		s.rng = rng
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

var defaults = []Option{
	func(s *settings) {
		if s.rng == nil {
			s.rng = rand.New(rand.NewSource(0))
		}
	},
	func(s *settings) {
		if s.logger == nil {
			s.logger = zap.NewNop()
		}
	},
}

func newSettings(opts []Option) settings {
	var s settings
	for _, apply := range append(opts, defaults...) {
		apply(&s)
	}
	return s
}

func contains[N Node](path []N, id int) bool {
	for _, n := range path {
		if n.ID() == id {
			return true
		}
	}
	return false
}
