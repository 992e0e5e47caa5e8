package planning

import (
	"fmt"

	"github.com/operator-framework/hasco/pkg/logic"
)

// Operator is a classical STRIPS operator. An operator with conditional
// effects applies each effect whose condition holds in the state the
// operator is applied to, on top of its unconditional add and delete lists.
type Operator struct {
	Name         string
	Params       []logic.Term
	Precondition []logic.Literal
	Add          []logic.Literal
	Delete       []logic.Literal
	Effects      []ConditionalEffect
}

type ConditionalEffect struct {
	Condition []logic.Literal
	Add       []logic.Literal
	Delete    []logic.Literal
}

func (o *Operator) Kind() Kind {
	if len(o.Effects) > 0 {
		return KindConditional
	}
	return KindStrips
}

func (o *Operator) String() string {
	return signature(o.Name, o.Params)
}

// Validate checks that the parameters are distinct variables and that every
// literal only uses declared parameters.
func (o *Operator) Validate() error {
	if o.Name == "" {
		return &ModelingError{Reason: "operator without a name", Err: ErrInvalidSchema}
	}
	declared, err := declare(o.String(), o.Params)
	if err != nil {
		return err
	}
	groups := [][]logic.Literal{o.Precondition, o.Add, o.Delete}
	for _, e := range o.Effects {
		groups = append(groups, e.Condition, e.Add, e.Delete)
	}
	for _, group := range groups {
		if err := checkDeclared(o.String(), declared, group...); err != nil {
			return err
		}
	}
	for _, l := range append(append([]logic.Literal(nil), o.Add...), o.Delete...) {
		if l.Negated {
			return &ModelingError{Schema: o.String(), Reason: fmt.Sprintf("effect %s is negated", l), Err: ErrInvalidSchema}
		}
	}
	return nil
}

func signature(name string, params []logic.Term) string {
	return logic.NewLiteral(name, params...).String()
}

func declare(schema string, params []logic.Term) (map[logic.Term]struct{}, error) {
	declared := make(map[logic.Term]struct{}, len(params))
	for _, p := range params {
		if !p.Variable {
			return nil, &ModelingError{Schema: schema, Parameter: p.String(), Reason: "parameter is not a variable", Err: ErrInvalidSchema}
		}
		if _, ok := declared[p]; ok {
			return nil, &ModelingError{Schema: schema, Parameter: p.String(), Reason: "parameter declared twice", Err: ErrInvalidSchema}
		}
		declared[p] = struct{}{}
	}
	return declared, nil
}

func checkDeclared(schema string, declared map[logic.Term]struct{}, ls ...logic.Literal) error {
	for _, l := range ls {
		for _, v := range l.Variables() {
			if _, ok := declared[v]; !ok {
				return &ModelingError{Schema: schema, Parameter: v.String(), Reason: fmt.Sprintf("used in %s", l), Err: ErrUndeclaredParameter}
			}
		}
	}
	return nil
}
