package planning

import (
	"fmt"

	"github.com/operator-framework/hasco/pkg/logic"
)

// Domain holds the schemas of a planning problem.
type Domain struct {
	Operators  []*Operator
	Methods    []*Method
	Evaluables map[string]EvaluablePredicate
}

// Operator returns the operator with the given name, or nil.
func (d *Domain) Operator(name string) *Operator {
	for _, o := range d.Operators {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// MethodsFor returns the methods decomposing tasks with the given
// predicate, in declaration order.
func (d *Domain) MethodsFor(task string) []*Method {
	var ms []*Method
	for _, m := range d.Methods {
		if m.Task.Predicate == task {
			ms = append(ms, m)
		}
	}
	return ms
}

// Evaluable returns the interpreted predicate registered under name, or nil.
func (d *Domain) Evaluable(name string) EvaluablePredicate {
	if d.Evaluables == nil {
		return nil
	}
	return d.Evaluables[name]
}

// Resolves reports whether a task with the given predicate can be handled,
// either by an operator of that name or by at least one method.
func (d *Domain) Resolves(task string) bool {
	return d.Operator(task) != nil || len(d.MethodsFor(task)) > 0
}

// Validate checks every schema in the domain.
func (d *Domain) Validate() error {
	seen := map[string]struct{}{}
	for _, o := range d.Operators {
		if err := o.Validate(); err != nil {
			return err
		}
		if _, ok := seen[o.Name]; ok {
			return &ModelingError{Schema: o.String(), Reason: "operator declared twice", Err: ErrInvalidSchema}
		}
		seen[o.Name] = struct{}{}
	}
	for _, m := range d.Methods {
		if err := m.Validate(d); err != nil {
			return err
		}
	}
	return nil
}

// GoalTester decides whether a state is a goal state.
type GoalTester interface {
	IsGoal(state *logic.FactSet) bool
}

// GoalFunc adapts a function to GoalTester.
type GoalFunc func(state *logic.FactSet) bool

func (f GoalFunc) IsGoal(state *logic.FactSet) bool {
	return f(state)
}

// GoalState is satisfied by every state in which all of its literals hold.
// Negated literals require absence.
type GoalState []logic.Literal

func (g GoalState) IsGoal(state *logic.FactSet) bool {
	return state.Satisfies(g...)
}

func (g GoalState) Literals() []logic.Literal {
	return g
}

// Problem is a planning problem. A problem with Tasks is hierarchical and is
// solved by decomposing the task network; otherwise it is solved by
// classical forward search towards Goal.
type Problem struct {
	Domain *Domain
	Init   *logic.FactSet
	Goal   GoalTester
	Tasks  []logic.Literal
	// Objects are constants available for grounding in addition to the
	// constants mentioned in Init.
	Objects []logic.Term
}

func (p *Problem) IsHierarchical() bool {
	return len(p.Tasks) > 0
}

// Constants returns the objects of the problem together with the constants
// used by the initial state.
func (p *Problem) Constants() []logic.Term {
	seen := map[logic.Term]struct{}{}
	var out []logic.Term
	for _, t := range append(p.Init.Constants(), p.Objects...) {
		if _, ok := seen[t]; ok || t.Variable {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	logic.SortTerms(out)
	return out
}

// Validate checks the domain, that the initial state, the goal and the
// task network are ground, and that every task can be handled.
func (p *Problem) Validate() error {
	if p.Domain == nil {
		return &ModelingError{Reason: "problem without a domain", Err: ErrInvalidSchema}
	}
	if err := p.Domain.Validate(); err != nil {
		return err
	}
	for _, l := range p.Init.Literals() {
		if !l.IsGround() || l.Negated {
			return &ModelingError{Reason: fmt.Sprintf("initial state literal %s", l), Err: ErrNotGround}
		}
	}
	if g, ok := p.Goal.(interface{ Literals() []logic.Literal }); ok {
		for _, l := range g.Literals() {
			if !l.IsGround() {
				return &ModelingError{Reason: fmt.Sprintf("goal literal %s", l), Err: ErrNotGround}
			}
		}
	}
	if p.Goal == nil && !p.IsHierarchical() {
		return &ModelingError{Reason: "problem has neither a goal nor a task network", Err: ErrInvalidSchema}
	}
	for _, t := range p.Tasks {
		if !t.IsGround() {
			return &ModelingError{Reason: fmt.Sprintf("task %s", t), Err: ErrNotGround}
		}
		if !p.Domain.Resolves(t.Predicate) {
			return &ModelingError{Reason: fmt.Sprintf("task %s", t), Err: ErrUnknownTask}
		}
	}
	return nil
}
