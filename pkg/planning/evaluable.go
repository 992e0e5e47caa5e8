package planning

import (
	"github.com/operator-framework/hasco/pkg/logic"
)

// EvaluablePredicate is an interpreted predicate: its truth is computed
// rather than looked up in the state.
//
// An oracable predicate can also enumerate its own valid argument tuples.
// Enumerate receives the literal's arguments with variables in the
// positions that are still unknown and returns complete tuples; tuples
// that disagree with a known argument are ignored by the caller.
//
// Implementations may be called from several goroutines at once.
type EvaluablePredicate interface {
	Oracable() bool
	Test(state *logic.FactSet, args []logic.Term) (bool, error)
	Enumerate(state *logic.FactSet, args []logic.Term) ([][]logic.Term, error)
}

// EvaluableFunc adapts plain functions to EvaluablePredicate. It is
// oracable iff EnumerateFn is set. When TestFn is nil, Test reports whether
// the ground arguments are among the enumerated tuples.
type EvaluableFunc struct {
	TestFn      func(state *logic.FactSet, args []logic.Term) (bool, error)
	EnumerateFn func(state *logic.FactSet, args []logic.Term) ([][]logic.Term, error)
}

var _ EvaluablePredicate = EvaluableFunc{}

func (f EvaluableFunc) Oracable() bool {
	return f.EnumerateFn != nil
}

func (f EvaluableFunc) Test(state *logic.FactSet, args []logic.Term) (bool, error) {
	if f.TestFn != nil {
		return f.TestFn(state, args)
	}
	if f.EnumerateFn == nil {
		return false, nil
	}
	tuples, err := f.EnumerateFn(state, args)
	if err != nil {
		return false, err
	}
	for _, tuple := range tuples {
		if sameTuple(tuple, args) {
			return true, nil
		}
	}
	return false, nil
}

func (f EvaluableFunc) Enumerate(state *logic.FactSet, args []logic.Term) ([][]logic.Term, error) {
	if f.EnumerateFn == nil {
		return nil, nil
	}
	return f.EnumerateFn(state, args)
}

func sameTuple(a, b []logic.Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Relation returns an oracable predicate backed by a fixed set of tuples.
func Relation(tuples ...[]logic.Term) EvaluablePredicate {
	return EvaluableFunc{
		EnumerateFn: func(_ *logic.FactSet, args []logic.Term) ([][]logic.Term, error) {
			var out [][]logic.Term
			for _, tuple := range tuples {
				if matchesKnown(tuple, args) {
					out = append(out, tuple)
				}
			}
			return out, nil
		},
	}
}

func matchesKnown(tuple, args []logic.Term) bool {
	if len(tuple) != len(args) {
		return false
	}
	for i, a := range args {
		if !a.Variable && a != tuple[i] {
			return false
		}
	}
	return true
}
