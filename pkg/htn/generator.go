// Package htn generates the search space of total-order forward
// decomposition over hierarchical task networks.
package htn

import (
	"errors"
	"math/rand"
	"strconv"

	"go.uber.org/zap"

	"github.com/operator-framework/hasco/internal/grounding"
	"github.com/operator-framework/hasco/internal/metrics"
	"github.com/operator-framework/hasco/internal/nodestore"
	"github.com/operator-framework/hasco/pkg/event"
	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
	"github.com/operator-framework/hasco/pkg/search"
)

const DefaultSampleLimit = 2

// GraphGenerator expands the first remaining task of a node. A primitive
// task is executed by its operator; a compound task is replaced by the
// network of one of its method instances, leaving the state unchanged.
type GraphGenerator struct {
	problem     *planning.Problem
	grounder    *grounding.Grounder
	store       *nodestore.Store[networkKey]
	rng         *rand.Rand
	sampleLimit int
	logger      *zap.Logger
	bus         *event.Bus
	events      *event.Factory[event.NodeExpanded]
	metrics     *metrics.Metrics
}

var _ search.Graph[*Node] = &GraphGenerator{}

type Option func(g *GraphGenerator) error

func WithRand(rng *rand.Rand) Option {
	return func(g *GraphGenerator) error {
		g.rng = rng
		return nil
	}
}

func WithSampleLimit(n int) Option {
	return func(g *GraphGenerator) error {
		if n < 1 {
			return errors.New("sample limit must be positive")
		}
		g.sampleLimit = n
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *GraphGenerator) error {
		g.logger = logger
		return nil
	}
}

func WithEventBus(bus *event.Bus) Option {
	return func(g *GraphGenerator) error {
		g.bus = bus
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *GraphGenerator) error {
		g.metrics = m
		return nil
	}
}

var defaults = []Option{
	func(g *GraphGenerator) error {
		if g.rng == nil {
			g.rng = rand.New(rand.NewSource(0))
		}
		return nil
	},
	func(g *GraphGenerator) error {
		if g.sampleLimit == 0 {
			g.sampleLimit = DefaultSampleLimit
		}
		return nil
	},
	func(g *GraphGenerator) error {
		if g.logger == nil {
			g.logger = zap.NewNop()
		}
		return nil
	},
}

func NewGraphGenerator(problem *planning.Problem, opts ...Option) (*GraphGenerator, error) {
	g := &GraphGenerator{
		problem: problem,
		store:   nodestore.New[networkKey](),
		events:  event.NewFactory[event.NodeExpanded]("htn"),
	}
	for _, option := range append(opts, defaults...) {
		if err := option(g); err != nil {
			return nil, err
		}
	}
	g.grounder = grounding.New(problem.Domain, problem.Constants(),
		grounding.WithLogger(g.logger),
		grounding.WithFreshConstants(grounding.NewFreshConstants("newVar_")))
	return g, nil
}

func (g *GraphGenerator) Root() (*Node, error) {
	r, _, err := g.store.Intern(networkKey{delta: planning.EmptyDelta(), tasks: g.problem.Tasks})
	if err != nil {
		return nil, err
	}
	return &Node{record: r}, nil
}

func (g *GraphGenerator) State(n *Node) *logic.FactSet {
	return n.Delta().State(g.problem.Init)
}

// IsGoal reports whether no task is left and the problem's goal, if any,
// holds.
func (g *GraphGenerator) IsGoal(n *Node) (bool, error) {
	if len(n.record.Key.tasks) > 0 {
		return false, nil
	}
	if g.problem.Goal == nil {
		return true, nil
	}
	return g.problem.Goal.IsGoal(g.State(n)), nil
}

func (g *GraphGenerator) Successors(n *Node) ([]*Node, error) {
	state := g.State(n)
	actions, err := n.record.All(g.source(n, state))
	if err != nil {
		return nil, err
	}
	successors := make([]*Node, 0, len(actions))
	for _, a := range actions {
		s, err := g.successor(n, state, a)
		if err != nil {
			return nil, err
		}
		successors = append(successors, s)
	}
	g.expanded(n, len(successors), true)
	return successors, nil
}

func (g *GraphGenerator) Successor(n *Node, i int) (*Node, bool, error) {
	state := g.State(n)
	a, ok, err := n.record.Next(i, g.source(n, state), g.sampleLimit, g.rng)
	if err != nil || !ok {
		return nil, false, err
	}
	s, err := g.successor(n, state, a)
	if err != nil {
		return nil, false, err
	}
	g.expanded(n, 1, false)
	return s, true, nil
}

// source computes the ways to accomplish the first task of n.
func (g *GraphGenerator) source(n *Node, state *logic.FactSet) nodestore.ActionSource {
	return func(limit int, rng *rand.Rand) ([]planning.Action, error) {
		tasks := n.record.Key.tasks
		if len(tasks) == 0 {
			return nil, nil
		}
		task := tasks[0]

		if op := g.problem.Domain.Operator(task.Predicate); op != nil {
			a, ok, err := g.grounder.PrimitiveAction(op, task, state)
			if err != nil || !ok {
				return nil, err
			}
			return []planning.Action{a}, nil
		}

		methods := g.problem.Domain.MethodsFor(task.Predicate)
		if len(methods) == 0 {
			return nil, &planning.ModelingError{Reason: "task " + task.String(), Err: planning.ErrUnknownTask}
		}
		if rng != nil {
			methods = append([]*planning.Method(nil), methods...)
			rng.Shuffle(len(methods), func(i, j int) { methods[i], methods[j] = methods[j], methods[i] })
		}
		scope := strconv.Itoa(n.ID())
		var instances []planning.Action
		for _, m := range methods {
			remaining := 0
			if limit > 0 {
				remaining = limit - len(instances)
				if remaining <= 0 {
					break
				}
			}
			found, err := g.grounder.MethodInstances(m, task, state, scope, remaining, rng)
			if err != nil {
				return nil, err
			}
			instances = append(instances, found...)
		}
		return instances, nil
	}
}

func (g *GraphGenerator) successor(n *Node, state *logic.FactSet, a planning.Action) (*Node, error) {
	rest := n.record.Key.tasks[1:]
	key := networkKey{delta: n.Delta()}
	switch a.Kind() {
	case planning.KindStrips, planning.KindConditional:
		add, del := a.Effects(state)
		key.delta = key.delta.Apply(g.problem.Init, add, del)
		key.tasks = append([]logic.Literal(nil), rest...)
	case planning.KindMethod:
		key.tasks = append(a.Network(), rest...)
	}
	r, _, err := g.store.Intern(key)
	if err != nil {
		return nil, err
	}
	return &Node{record: r, action: a}, nil
}

func (g *GraphGenerator) expanded(n *Node, successors int, bulk bool) {
	g.metrics.NodeExpanded()
	g.bus.Publish(g.events.NewEvent(event.NodeExpanded{Node: n.ID(), Successors: successors, Bulk: bulk}))
	if ce := g.logger.Check(zap.DebugLevel, "expanded node"); ce != nil {
		ce.Write(zap.Int("node", n.ID()), zap.Stringer("tasks", n), zap.Int("successors", successors), zap.Bool("bulk", bulk))
	}
}

func (g *GraphGenerator) Nodes() int {
	return g.store.Len()
}
