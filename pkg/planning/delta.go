package planning

import (
	"github.com/operator-framework/hasco/pkg/logic"
)

// Delta represents a state relative to an initial state:
//
//	state = (init − Deleted) ∪ Added
//
// Deltas built by Apply are normalised: Added and Deleted are disjoint,
// Added holds no literal of init and Deleted only literals of init. Equal
// states therefore always have equal deltas, no matter which path produced
// them.
type Delta struct {
	Added   *logic.FactSet
	Deleted *logic.FactSet
}

// EmptyDelta is the delta of the initial state itself.
func EmptyDelta() Delta {
	return Delta{Added: logic.NewFactSet(), Deleted: logic.NewFactSet()}
}

// State reconstructs the full state.
func (d Delta) State(init *logic.FactSet) *logic.FactSet {
	return init.Difference(d.Deleted).Union(d.Added)
}

// Apply returns the delta after applying add and del. New deletions are
// removed from the inherited additions and vice versa before the new lists
// are merged in; additions win over deletions of the same literal.
func (d Delta) Apply(init *logic.FactSet, add, del []logic.Literal) Delta {
	addSet := logic.NewFactSet(add...)
	delSet := logic.NewFactSet(del...).Difference(addSet)

	added := d.Added.Difference(delSet).Union(addSet)
	deleted := d.Deleted.Difference(addSet).Union(delSet)

	return Delta{
		Added:   added.Difference(init),
		Deleted: deleted.Intersection(init),
	}
}

func (d Delta) Equal(o Delta) bool {
	return d.Added.Equal(o.Added) && d.Deleted.Equal(o.Deleted)
}

// Disjoint reports whether no literal is both added and deleted.
func (d Delta) Disjoint() bool {
	return !d.Added.Intersects(d.Deleted)
}
