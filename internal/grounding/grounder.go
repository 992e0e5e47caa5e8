package grounding

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
)

// Grounder computes the ground actions and method instances applicable in
// a state. Operator parameters that the precondition does not fix range
// over the grounder's constants.
type Grounder struct {
	domain    *planning.Domain
	constants []logic.Term
	fresh     *FreshConstants
	logger    *zap.Logger
}

type Option func(g *Grounder)

func WithLogger(logger *zap.Logger) Option {
	return func(g *Grounder) {
		g.logger = logger
	}
}

// WithFreshConstants sets the source of constants for method outputs.
func WithFreshConstants(fresh *FreshConstants) Option {
	return func(g *Grounder) {
		g.fresh = fresh
	}
}

func New(domain *planning.Domain, constants []logic.Term, opts ...Option) *Grounder {
	g := &Grounder{domain: domain, constants: constants}
	for _, apply := range append(opts, defaults...) {
		apply(g)
	}
	return g
}

var defaults = []Option{
	func(g *Grounder) {
		if g.logger == nil {
			g.logger = zap.NewNop()
		}
	},
	func(g *Grounder) {
		if g.fresh == nil {
			g.fresh = NewFreshConstants("newVar_")
		}
	},
}

func (g *Grounder) matcher(state *logic.FactSet, rng *rand.Rand) *logic.Matcher {
	opts := []logic.MatcherOption{logic.WithConstants(g.constants...)}
	if rng != nil {
		opts = append(opts, logic.WithRand(rng))
	}
	return logic.NewMatcher(state, opts...)
}

// Actions returns the ground operator actions applicable in state. A
// positive limit stops the search after that many actions. With a non-nil
// rng, operators and candidate bindings are visited in random order so
// that a small limit yields a random sample.
func (g *Grounder) Actions(state *logic.FactSet, limit int, rng *rand.Rand) ([]planning.Action, error) {
	ops := g.domain.Operators
	if rng != nil {
		ops = append([]*planning.Operator(nil), ops...)
		rng.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })
	}
	m := g.matcher(state, rng)
	var actions []planning.Action
	for _, op := range ops {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(actions)
			if remaining <= 0 {
				break
			}
		}
		found, err := g.operatorActions(m, op, remaining)
		if err != nil {
			return nil, err
		}
		actions = append(actions, found...)
	}
	return actions, nil
}

// OperatorActions grounds a single operator; see Actions.
func (g *Grounder) OperatorActions(op *planning.Operator, state *logic.FactSet, limit int, rng *rand.Rand) ([]planning.Action, error) {
	return g.operatorActions(g.matcher(state, rng), op, limit)
}

func (g *Grounder) operatorActions(m *logic.Matcher, op *planning.Operator, limit int) ([]planning.Action, error) {
	seen := map[string]struct{}{}
	var actions []planning.Action
	err := m.Match(op.Precondition, nil, op.Params, func(gr logic.Grounding) bool {
		a := planning.NewOperatorAction(op, gr)
		if _, ok := seen[a.Key()]; ok {
			return true
		}
		seen[a.Key()] = struct{}{}
		actions = append(actions, a)
		return limit <= 0 || len(actions) < limit
	})
	if err != nil {
		return nil, &planning.ModelingError{Schema: op.String(), Reason: "cannot match precondition", Err: err}
	}
	return actions, nil
}

// PrimitiveAction grounds op for a ground task literal naming it. It
// returns false when the precondition does not hold in state.
func (g *Grounder) PrimitiveAction(op *planning.Operator, task logic.Literal, state *logic.FactSet) (planning.Action, bool, error) {
	if len(task.Terms) != len(op.Params) {
		return planning.Action{}, false, &planning.ModelingError{
			Schema: op.String(),
			Reason: fmt.Sprintf("task %s has %d arguments, operator expects %d", task, len(task.Terms), len(op.Params)),
			Err:    planning.ErrInvalidSchema,
		}
	}
	seed, ok := logic.Unify(logic.NewLiteral(op.Name, op.Params...), task.Positive(), logic.Grounding{})
	if !ok {
		return planning.Action{}, false, nil
	}
	gs, err := g.matcher(state, nil).All(op.Precondition, seed, op.Params, 1)
	if err != nil {
		return planning.Action{}, false, &planning.ModelingError{Schema: op.String(), Reason: "cannot match precondition", Err: err}
	}
	if len(gs) == 0 {
		return planning.Action{}, false, nil
	}
	return planning.NewOperatorAction(op, gs[0]), true, nil
}

// MethodInstances returns the instances of m that decompose the ground task
// in state. The precondition is matched against the state, then evaluable
// literals are resolved by their predicates, and finally output
// parameters are bound to fresh constants. scope distinguishes the fresh
// constants of different search nodes; the same scope always receives the
// same constants.
//
// Failing to bind a parameter, or an evaluable literal that would need
// more than one unknown resolved at once, is a *planning.ModelingError.
func (g *Grounder) MethodInstances(m *planning.Method, task logic.Literal, state *logic.FactSet, scope string, limit int, rng *rand.Rand) ([]planning.Action, error) {
	head, ok := logic.Unify(m.Task, task.Positive(), logic.Grounding{})
	if !ok {
		return nil, nil
	}
	if m.Lonely {
		limit = 1
	}

	var (
		instances []planning.Action
		seen      = map[string]struct{}{}
		failure   error
	)
	matchErr := g.matcher(state, rng).Match(m.Precondition, head, nil, func(basic logic.Grounding) bool {
		resolved, err := g.resolveEvaluable(m, state, basic)
		if err != nil {
			failure = err
			return false
		}
		for _, gr := range resolved {
			gr, err = g.bindOutputs(m, scope, gr)
			if err != nil {
				failure = err
				return false
			}
			instance := planning.NewMethodInstance(m, gr)
			if _, ok := seen[instance.Key()]; ok {
				continue
			}
			seen[instance.Key()] = struct{}{}
			instances = append(instances, instance)
			if limit > 0 && len(instances) >= limit {
				return false
			}
		}
		return true
	})
	if matchErr != nil {
		return nil, &planning.ModelingError{Schema: m.String(), Reason: "cannot match precondition", Err: matchErr}
	}
	if failure != nil {
		return nil, failure
	}
	g.logger.Debug("grounded method",
		zap.String("method", m.Name),
		zap.Stringer("task", task),
		zap.Int("instances", len(instances)))
	return instances, nil
}

func (g *Grounder) bindOutputs(m *planning.Method, scope string, gr logic.Grounding) (logic.Grounding, error) {
	var out logic.Grounding
	for _, p := range m.Params {
		if gr.Bound(p) {
			continue
		}
		if !m.IsOutput(p) {
			return nil, &planning.ModelingError{Schema: m.String(), Parameter: p.String(), Err: planning.ErrUnboundParameter}
		}
		if out == nil {
			out = gr.Clone()
		}
		out[p] = g.fresh.For(scope + "/" + m.Name + "/" + gr.Key() + "/" + p.Name)
	}
	if out == nil {
		return gr, nil
	}
	return out, nil
}
