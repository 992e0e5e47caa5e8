// Package strips generates the state space of classical planning problems
// for forward search.
package strips

import (
	"errors"
	"math/rand"

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

// GraphGenerator lazily builds the planning graph of a problem. Nodes store
// their state as a delta against the initial state.
type GraphGenerator struct {
	problem     *planning.Problem
	grounder    *grounding.Grounder
	store       *nodestore.Store[stateKey]
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

// WithSampleLimit bounds the number of actions computed for the first
// incremental expansion of a node.
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

// NewGraphGenerator returns a generator for problem. The problem is
// expected to be valid; see planning.Problem.Validate.
func NewGraphGenerator(problem *planning.Problem, opts ...Option) (*GraphGenerator, error) {
	g := &GraphGenerator{
		problem: problem,
		store:   nodestore.New[stateKey](),
		events:  event.NewFactory[event.NodeExpanded]("strips"),
	}
	for _, option := range append(opts, defaults...) {
		if err := option(g); err != nil {
			return nil, err
		}
	}
	g.grounder = grounding.New(problem.Domain, problem.Constants(), grounding.WithLogger(g.logger))
	return g, nil
}

func (g *GraphGenerator) Root() (*Node, error) {
	r, _, err := g.store.Intern(stateKey{delta: planning.EmptyDelta()})
	if err != nil {
		return nil, err
	}
	return &Node{record: r}, nil
}

// State reconstructs the full state of n.
func (g *GraphGenerator) State(n *Node) *logic.FactSet {
	return n.Delta().State(g.problem.Init)
}

func (g *GraphGenerator) IsGoal(n *Node) (bool, error) {
	return g.problem.Goal.IsGoal(g.State(n)), nil
}

// Successors returns all successors of n not handed out incrementally
// before. It fails with nodestore.ErrAlreadyExpanded on a second call for
// the same state.
func (g *GraphGenerator) Successors(n *Node) ([]*Node, error) {
	state := g.State(n)
	actions, err := n.record.All(g.source(state))
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

// Successor returns one successor of n not handed out before, chosen by i
// among the remaining ones.
func (g *GraphGenerator) Successor(n *Node, i int) (*Node, bool, error) {
	state := g.State(n)
	a, ok, err := n.record.Next(i, g.source(state), g.sampleLimit, g.rng)
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

func (g *GraphGenerator) source(state *logic.FactSet) nodestore.ActionSource {
	return func(limit int, rng *rand.Rand) ([]planning.Action, error) {
		return g.grounder.Actions(state, limit, rng)
	}
}

func (g *GraphGenerator) successor(n *Node, state *logic.FactSet, a planning.Action) (*Node, error) {
	add, del := a.Effects(state)
	d := n.Delta().Apply(g.problem.Init, add, del)
	r, _, err := g.store.Intern(stateKey{delta: d})
	if err != nil {
		return nil, err
	}
	return &Node{record: r, action: a}, nil
}

func (g *GraphGenerator) expanded(n *Node, successors int, bulk bool) {
	g.metrics.NodeExpanded()
	g.bus.Publish(g.events.NewEvent(event.NodeExpanded{Node: n.ID(), Successors: successors, Bulk: bulk}))
	if ce := g.logger.Check(zap.DebugLevel, "expanded node"); ce != nil {
		ce.Write(zap.Int("node", n.ID()), zap.Int("successors", successors), zap.Bool("bulk", bulk))
	}
}

// Nodes returns the number of distinct states generated so far.
func (g *GraphGenerator) Nodes() int {
	return g.store.Len()
}
