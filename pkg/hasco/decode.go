package hasco

import (
	"errors"
	"fmt"

	"github.com/operator-framework/hasco/pkg/components"
	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
)

// ErrIncompletePlan is returned when a plan does not describe a complete
// instance.
var ErrIncompletePlan = errors.New("plan does not describe a complete instance")

// DecodePlan replays plan from the empty state and rebuilds the instance
// it configures for Root.
func DecodePlan(plan planning.Plan) (*components.Instance, error) {
	state, ok := plan.Apply(logic.NewFactSet())
	if !ok {
		return nil, fmt.Errorf("%w: plan %s is not applicable", ErrIncompletePlan, plan)
	}
	return DecodeState(state, logic.Constant(Root))
}

// DecodeState rebuilds the instance configured for obj from the facts a
// plan of a Reduction produces.
func DecodeState(state *logic.FactSet, obj logic.Term) (*components.Instance, error) {
	return decode(state, obj, map[logic.Term]bool{})
}

func decode(state *logic.FactSet, obj logic.Term, visiting map[logic.Term]bool) (*components.Instance, error) {
	if visiting[obj] {
		return nil, fmt.Errorf("%w: %s is part of itself", ErrIncompletePlan, obj)
	}
	visiting[obj] = true
	defer delete(visiting, obj)

	var instance *components.Instance
	for _, l := range state.WithPredicate(componentPredicate, 2) {
		if l.Terms[0] != obj {
			continue
		}
		if instance != nil {
			return nil, fmt.Errorf("%w: %s is configured twice", ErrIncompletePlan, obj)
		}
		instance = &components.Instance{Component: l.Terms[1].Name}
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: no component for %s", ErrIncompletePlan, obj)
	}
	for _, l := range state.WithPredicate(paramPredicate, 3) {
		if l.Terms[0] != obj {
			continue
		}
		if instance.Parameters == nil {
			instance.Parameters = map[string]string{}
		}
		instance.Parameters[l.Terms[1].Name] = l.Terms[2].Name
	}
	for _, l := range state.WithPredicate(bindingPredicate, 3) {
		if l.Terms[0] != obj {
			continue
		}
		child, err := decode(state, l.Terms[2], visiting)
		if err != nil {
			return nil, err
		}
		if instance.Satisfaction == nil {
			instance.Satisfaction = map[string]*components.Instance{}
		}
		instance.Satisfaction[l.Terms[1].Name] = child
	}
	return instance, nil
}
