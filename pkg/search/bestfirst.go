package search

import (
	"container/heap"
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// PathEvaluator scores a path from the root; lower is better.
type PathEvaluator[N Node] func(path []N) (float64, error)

// PathLength scores a path by its number of edges, which turns BestFirst
// into a uniform-cost search.
func PathLength[N Node](path []N) (float64, error) {
	return float64(len(path) - 1), nil
}

// BestFirst expands the open path with the lowest score first. Each node is
// expanded at most once, from the first path that reaches it; equal scores
// are expanded in insertion order. Goal nodes are the exception to path
// pruning: every path into a goal is a solution, and a goal is expanded
// after it was returned, so solutions may pass through other goals.
type BestFirst[N Node] struct {
	graph    Graph[N]
	eval     PathEvaluator[N]
	logger   *zap.Logger
	open     openList[N]
	closed   map[int]struct{}
	deferred *entry[N]
	seq      int
	started  bool
	canceled atomic.Bool
}

var _ Algorithm[Node] = &BestFirst[Node]{}

func NewBestFirst[N Node](graph Graph[N], eval PathEvaluator[N], opts ...Option) *BestFirst[N] {
	s := newSettings(opts)
	return &BestFirst[N]{
		graph:  graph,
		eval:   eval,
		logger: s.logger,
		closed: map[int]struct{}{},
	}
}

// BestFirstFactory returns a Factory for BestFirst with the given evaluator.
func BestFirstFactory[N Node](eval PathEvaluator[N]) Factory[N] {
	return func(graph Graph[N], opts ...Option) Algorithm[N] {
		return NewBestFirst(graph, eval, opts...)
	}
}

func (b *BestFirst[N]) Cancel() {
	b.canceled.Store(true)
}

func (b *BestFirst[N]) push(path []N) error {
	score, err := b.eval(path)
	if err != nil {
		return err
	}
	heap.Push(&b.open, &entry[N]{path: path, score: score, seq: b.seq})
	b.seq++
	return nil
}

func (b *BestFirst[N]) NextSolution(ctx context.Context) (Path[N], error) {
	if !b.started {
		b.started = true
		root, err := b.graph.Root()
		if err != nil {
			return Path[N]{}, err
		}
		if err := b.push([]N{root}); err != nil {
			return Path[N]{}, err
		}
	}
	if e := b.deferred; e != nil {
		b.deferred = nil
		if err := b.expand(e); err != nil {
			return Path[N]{}, err
		}
	}

	for {
		if b.canceled.Load() {
			return Path[N]{}, ErrCanceled
		}
		if err := ctx.Err(); err != nil {
			return Path[N]{}, err
		}
		if b.open.Len() == 0 {
			b.logger.Debug("best-first search exhausted", zap.Int("closed", len(b.closed)))
			return Path[N]{}, ErrExhausted
		}

		e := heap.Pop(&b.open).(*entry[N])
		n := e.path[len(e.path)-1]
		goal, err := b.graph.IsGoal(n)
		if err != nil {
			return Path[N]{}, err
		}
		_, closed := b.closed[n.ID()]
		if goal {
			if !closed {
				b.closed[n.ID()] = struct{}{}
				b.deferred = e
			}
			return Path[N]{Nodes: e.path, Score: e.score}, nil
		}
		if closed {
			continue
		}
		b.closed[n.ID()] = struct{}{}
		if err := b.expand(e); err != nil {
			return Path[N]{}, err
		}
	}
}

// expand pushes the successors of the last node of e. Successors already
// on the path are dropped, closed ones are only kept when they are goals.
func (b *BestFirst[N]) expand(e *entry[N]) error {
	successors, err := b.graph.Successors(e.path[len(e.path)-1])
	if err != nil {
		return err
	}
	for _, s := range successors {
		if contains(e.path, s.ID()) {
			continue
		}
		if _, ok := b.closed[s.ID()]; ok {
			goal, err := b.graph.IsGoal(s)
			if err != nil {
				return err
			}
			if !goal {
				continue
			}
		}
		path := make([]N, len(e.path)+1)
		copy(path, e.path)
		path[len(e.path)] = s
		if err := b.push(path); err != nil {
			return err
		}
	}
	return nil
}

type entry[N Node] struct {
	path  []N
	score float64
	seq   int
}

type openList[N Node] []*entry[N]

func (o openList[N]) Len() int { return len(o) }

func (o openList[N]) Less(i, j int) bool {
	if o[i].score != o[j].score {
		return o[i].score < o[j].score
	}
	return o[i].seq < o[j].seq
}

func (o openList[N]) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openList[N]) Push(x any) { *o = append(*o, x.(*entry[N])) }

func (o *openList[N]) Pop() any {
	old := *o
	e := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	return e
}
