package planning

import (
	"github.com/operator-framework/hasco/pkg/logic"
)

// Action is an operator or a method paired with a grounding of its
// parameters. Actions are immutable once created.
type Action struct {
	kind      Kind
	operator  *Operator
	method    *Method
	grounding logic.Grounding
	args      []logic.Term
	key       string
}

// NewOperatorAction grounds op with g. Parameters missing from g stay
// variables in the action's arguments.
func NewOperatorAction(op *Operator, g logic.Grounding) Action {
	a := Action{kind: op.Kind(), operator: op, grounding: g.Restrict(op.Params)}
	a.args = groundParams(op.Params, a.grounding)
	a.key = a.kind.String() + ":" + logic.NewLiteral(op.Name, a.args...).Key()
	return a
}

// NewMethodInstance grounds m with g.
func NewMethodInstance(m *Method, g logic.Grounding) Action {
	a := Action{kind: KindMethod, method: m, grounding: g.Restrict(m.Params)}
	a.args = groundParams(m.Params, a.grounding)
	a.key = a.kind.String() + ":" + logic.NewLiteral(m.Name, a.args...).Key()
	return a
}

func groundParams(params []logic.Term, g logic.Grounding) []logic.Term {
	args := make([]logic.Term, len(params))
	for i, p := range params {
		args[i] = g.Resolve(p)
	}
	return args
}

func (a Action) Kind() Kind {
	return a.kind
}

// IsZero reports whether a is the zero Action.
func (a Action) IsZero() bool {
	return a.operator == nil && a.method == nil
}

func (a Action) Name() string {
	switch a.kind {
	case KindStrips, KindConditional:
		return a.operator.Name
	case KindMethod:
		return a.method.Name
	}
	return ""
}

// Operator returns the operator of a primitive action, or nil.
func (a Action) Operator() *Operator {
	return a.operator
}

// Method returns the method of a method instance, or nil.
func (a Action) Method() *Method {
	return a.method
}

// Arguments returns the ground parameter values in declaration order.
func (a Action) Arguments() []logic.Term {
	return append([]logic.Term(nil), a.args...)
}

func (a Action) Grounding() logic.Grounding {
	return a.grounding.Clone()
}

// Key identifies the action by kind, schema name and arguments.
func (a Action) Key() string {
	return a.key
}

func (a Action) Equal(o Action) bool {
	return a.key == o.key
}

func (a Action) String() string {
	return logic.NewLiteral(a.Name(), a.args...).String()
}

// Precondition returns the ground precondition.
func (a Action) Precondition() []logic.Literal {
	switch a.kind {
	case KindStrips, KindConditional:
		return logic.ApplyAll(a.operator.Precondition, a.grounding)
	case KindMethod:
		return logic.ApplyAll(a.method.Precondition, a.grounding)
	}
	return nil
}

// Task returns the ground task a method instance decomposes, or for a
// primitive action the task literal it accomplishes.
func (a Action) Task() logic.Literal {
	if a.kind == KindMethod {
		return a.method.Task.Apply(a.grounding)
	}
	return logic.NewLiteral(a.Name(), a.args...)
}

// Network returns the ground subtasks of a method instance.
func (a Action) Network() []logic.Literal {
	if a.kind != KindMethod {
		return nil
	}
	return logic.ApplyAll(a.method.Network, a.grounding)
}

// Effects returns the ground add and delete lists of the action when it is
// applied in state. Conditional effects are included iff their condition
// holds in state. Method instances have no effects.
func (a Action) Effects(state *logic.FactSet) (add, del []logic.Literal) {
	switch a.kind {
	case KindStrips:
		return logic.ApplyAll(a.operator.Add, a.grounding), logic.ApplyAll(a.operator.Delete, a.grounding)
	case KindConditional:
		add = logic.ApplyAll(a.operator.Add, a.grounding)
		del = logic.ApplyAll(a.operator.Delete, a.grounding)
		for _, e := range a.operator.Effects {
			if !state.Satisfies(logic.ApplyAll(e.Condition, a.grounding)...) {
				continue
			}
			add = append(add, logic.ApplyAll(e.Add, a.grounding)...)
			del = append(del, logic.ApplyAll(e.Delete, a.grounding)...)
		}
		return add, del
	case KindMethod:
		return nil, nil
	}
	return nil, nil
}

// Apply returns the successor state. Deletions are applied before
// additions, so a literal both added and deleted ends up true.
func (a Action) Apply(state *logic.FactSet) *logic.FactSet {
	add, del := a.Effects(state)
	next := state.Clone()
	for _, l := range del {
		next.Remove(l)
	}
	next.AddAll(add...)
	return next
}
