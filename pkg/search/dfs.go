package search

import (
	"context"
	"math/rand"
	"sync/atomic"

	"go.uber.org/zap"
)

// RandomizedDepthFirst walks the graph depth first, asking for one
// successor at a time with a random index, and backtracks when a node has
// no successor left. Nodes already on the current path are skipped. After
// a solution is returned its goal node is popped, so the next call
// continues with the goal's siblings.
type RandomizedDepthFirst[N Node] struct {
	graph    Graph[N]
	rng      *rand.Rand
	logger   *zap.Logger
	stack    []N
	started  bool
	canceled atomic.Bool
}

var _ Algorithm[Node] = &RandomizedDepthFirst[Node]{}

func NewRandomizedDepthFirst[N Node](graph Graph[N], opts ...Option) *RandomizedDepthFirst[N] {
	s := newSettings(opts)
	return &RandomizedDepthFirst[N]{graph: graph, rng: s.rng, logger: s.logger}
}

// RandomizedDepthFirstFactory is a Factory for RandomizedDepthFirst.
func RandomizedDepthFirstFactory[N Node](graph Graph[N], opts ...Option) Algorithm[N] {
	return NewRandomizedDepthFirst(graph, opts...)
}

func (d *RandomizedDepthFirst[N]) Cancel() {
	d.canceled.Store(true)
}

func (d *RandomizedDepthFirst[N]) solution() Path[N] {
	path := append([]N(nil), d.stack...)
	d.stack = d.stack[:len(d.stack)-1]
	return Path[N]{Nodes: path, Score: float64(len(path) - 1)}
}

func (d *RandomizedDepthFirst[N]) NextSolution(ctx context.Context) (Path[N], error) {
	if !d.started {
		d.started = true
		root, err := d.graph.Root()
		if err != nil {
			return Path[N]{}, err
		}
		d.stack = []N{root}
		goal, err := d.graph.IsGoal(root)
		if err != nil {
			return Path[N]{}, err
		}
		if goal {
			return d.solution(), nil
		}
	}

	for {
		if d.canceled.Load() {
			return Path[N]{}, ErrCanceled
		}
		if err := ctx.Err(); err != nil {
			return Path[N]{}, err
		}
		if len(d.stack) == 0 {
			d.logger.Debug("depth-first search exhausted")
			return Path[N]{}, ErrExhausted
		}

		top := d.stack[len(d.stack)-1]
		next, ok, err := d.graph.Successor(top, d.rng.Int())
		if err != nil {
			return Path[N]{}, err
		}
		if !ok {
			d.stack = d.stack[:len(d.stack)-1]
			continue
		}
		if contains(d.stack, next.ID()) {
			continue
		}
		d.stack = append(d.stack, next)
		goal, err := d.graph.IsGoal(next)
		if err != nil {
			return Path[N]{}, err
		}
		if goal {
			return d.solution(), nil
		}
	}
}
