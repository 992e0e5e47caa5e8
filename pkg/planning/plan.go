package planning

import (
	"strings"

	"github.com/operator-framework/hasco/pkg/logic"
)

// Plan is an ordered sequence of primitive actions.
type Plan struct {
	Actions []Action
}

func (p Plan) Len() int {
	return len(p.Actions)
}

// Apply executes the plan from init and returns the final state. It stops
// and reports false at the first action whose precondition does not hold.
func (p Plan) Apply(init *logic.FactSet) (*logic.FactSet, bool) {
	state := init.Clone()
	for _, a := range p.Actions {
		if !state.Satisfies(a.Precondition()...) {
			return state, false
		}
		state = a.Apply(state)
	}
	return state, true
}

func (p Plan) String() string {
	parts := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
