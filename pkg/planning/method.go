package planning

import (
	"fmt"

	"github.com/operator-framework/hasco/pkg/logic"
)

// Method decomposes a compound task into an ordered network of subtasks.
//
// Evaluable literals are not matched against the state. They are resolved
// by the EvaluablePredicate registered under their predicate name, which
// may enumerate bindings for a single unbound parameter. Outputs are
// parameters that may legitimately stay unbound after matching; each one
// receives a fresh constant. A Lonely method yields at most one instance
// for a given task and state.
type Method struct {
	Name         string
	Params       []logic.Term
	Task         logic.Literal
	Precondition []logic.Literal
	Evaluable    []logic.Literal
	Network      []logic.Literal
	Outputs      []logic.Term
	Lonely       bool
}

func (m *Method) Kind() Kind {
	return KindMethod
}

func (m *Method) String() string {
	return signature(m.Name, m.Params)
}

// IsOutput reports whether v is declared as an output parameter.
func (m *Method) IsOutput(v logic.Term) bool {
	for _, o := range m.Outputs {
		if o == v {
			return true
		}
	}
	return false
}

// Validate checks parameters and literals of the method. Evaluable
// predicates must be registered in the domain.
func (m *Method) Validate(d *Domain) error {
	if m.Name == "" {
		return &ModelingError{Reason: "method without a name", Err: ErrInvalidSchema}
	}
	declared, err := declare(m.String(), m.Params)
	if err != nil {
		return err
	}
	for _, o := range m.Outputs {
		if _, ok := declared[o]; !ok {
			return &ModelingError{Schema: m.String(), Parameter: o.String(), Reason: "output is not a parameter", Err: ErrUndeclaredParameter}
		}
	}
	if m.Task.Negated {
		return &ModelingError{Schema: m.String(), Reason: fmt.Sprintf("task %s is negated", m.Task), Err: ErrInvalidSchema}
	}
	for _, group := range [][]logic.Literal{{m.Task}, m.Precondition, m.Evaluable, m.Network} {
		if err := checkDeclared(m.String(), declared, group...); err != nil {
			return err
		}
	}
	for _, l := range m.Evaluable {
		if d == nil || d.Evaluable(l.Predicate) == nil {
			return &ModelingError{Schema: m.String(), Reason: fmt.Sprintf("evaluable literal %s", l), Err: ErrUnknownEvaluable}
		}
	}
	for _, t := range m.Network {
		if d != nil && !d.Resolves(t.Predicate) {
			return &ModelingError{Schema: m.String(), Reason: fmt.Sprintf("subtask %s", t), Err: ErrUnknownTask}
		}
	}
	return nil
}
