package planner

import (
	"github.com/operator-framework/hasco/pkg/planning"
	"github.com/operator-framework/hasco/pkg/search"
)

// Node is the view the planner has of the nodes of either graph
// generator.
type Node interface {
	search.Node
	Action() (planning.Action, bool)
}

// graph hides the concrete node type of a generator behind Node.
type graph[N Node] struct {
	generator search.Graph[N]
}

var _ search.Graph[Node] = graph[Node]{}

func (g graph[N]) Root() (Node, error) {
	n, err := g.generator.Root()
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (g graph[N]) Successors(n Node) ([]Node, error) {
	successors, err := g.generator.Successors(n.(N))
	if err != nil {
		return nil, err
	}
	out := make([]Node, len(successors))
	for i, s := range successors {
		out[i] = s
	}
	return out, nil
}

func (g graph[N]) Successor(n Node, i int) (Node, bool, error) {
	s, ok, err := g.generator.Successor(n.(N), i)
	if err != nil || !ok {
		return nil, false, err
	}
	return s, true, nil
}

func (g graph[N]) IsGoal(n Node) (bool, error) {
	return g.generator.IsGoal(n.(N))
}

// extractPlan collects the operator actions along a path. The root has no
// action and method instances only shape the search, so neither is part
// of the plan.
func extractPlan(path []Node) planning.Plan {
	var plan planning.Plan
	for _, n := range path {
		a, ok := n.Action()
		if !ok {
			continue
		}
		switch a.Kind() {
		case planning.KindStrips, planning.KindConditional:
			plan.Actions = append(plan.Actions, a)
		case planning.KindMethod:
		}
	}
	return plan
}
