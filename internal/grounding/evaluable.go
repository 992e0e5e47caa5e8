package grounding

import (
	"fmt"

	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
)

// resolveEvaluable extends a basic grounding by the evaluable literals of
// m. Literals are taken one at a time: oracable ones first, and among
// equals the one with the fewest unbound variables. A literal without
// unbound variables filters the partial groundings; a literal with exactly
// one unbound variable asks its oracle for candidates once per partial
// grounding, so earlier choices constrain later ones.
func (g *Grounder) resolveEvaluable(m *planning.Method, state *logic.FactSet, basic logic.Grounding) ([]logic.Grounding, error) {
	partials := []logic.Grounding{basic}
	remaining := append([]logic.Literal(nil), m.Evaluable...)
	bound := map[logic.Term]struct{}{}
	for v := range basic {
		bound[v] = struct{}{}
	}

	for len(remaining) > 0 && len(partials) > 0 {
		i, err := g.nextEvaluable(m, remaining, bound)
		if err != nil {
			return nil, err
		}
		l := remaining[i]
		remaining = append(remaining[:i], remaining[i+1:]...)
		pred := g.domain.Evaluable(l.Predicate)
		unbound := unboundIn(l, bound)

		switch len(unbound) {
		case 0:
			partials, err = filter(pred, l, state, partials)
			if err != nil {
				return nil, &planning.ModelingError{Schema: m.String(), Reason: fmt.Sprintf("evaluating %s", l), Err: err}
			}
		case 1:
			if !pred.Oracable() || l.Negated {
				return nil, &planning.ModelingError{Schema: m.String(), Parameter: unbound[0].String(), Reason: fmt.Sprintf("in %s", l), Err: planning.ErrNotOracable}
			}
			partials, err = oracle(pred, l, state, partials)
			if err != nil {
				return nil, &planning.ModelingError{Schema: m.String(), Reason: fmt.Sprintf("oracling %s", l), Err: err}
			}
			bound[unbound[0]] = struct{}{}
		default:
			return nil, &planning.ModelingError{Schema: m.String(), Reason: fmt.Sprintf("%s leaves %d parameters unbound", l, len(unbound)), Err: planning.ErrUnsupportedOracle}
		}
	}
	return partials, nil
}

func (g *Grounder) nextEvaluable(m *planning.Method, ls []logic.Literal, bound map[logic.Term]struct{}) (int, error) {
	best, bestOracable, bestUnbound := -1, false, 0
	for i, l := range ls {
		pred := g.domain.Evaluable(l.Predicate)
		if pred == nil {
			return -1, &planning.ModelingError{Schema: m.String(), Reason: fmt.Sprintf("evaluable literal %s", l), Err: planning.ErrUnknownEvaluable}
		}
		// Negated literals cannot produce bindings, so they never go first.
		oracable := pred.Oracable() && !l.Negated
		unbound := len(unboundIn(l, bound))
		if best < 0 || (oracable && !bestOracable) || (oracable == bestOracable && unbound < bestUnbound) {
			best, bestOracable, bestUnbound = i, oracable, unbound
		}
	}
	return best, nil
}

func unboundIn(l logic.Literal, bound map[logic.Term]struct{}) []logic.Term {
	var out []logic.Term
	for _, v := range l.Variables() {
		if _, ok := bound[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func filter(pred planning.EvaluablePredicate, l logic.Literal, state *logic.FactSet, partials []logic.Grounding) ([]logic.Grounding, error) {
	var kept []logic.Grounding
	for _, p := range partials {
		holds, err := pred.Test(state, l.Apply(p).Terms)
		if err != nil {
			return nil, err
		}
		if holds != l.Negated {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func oracle(pred planning.EvaluablePredicate, l logic.Literal, state *logic.FactSet, partials []logic.Grounding) ([]logic.Grounding, error) {
	var (
		extended []logic.Grounding
		seen     = map[string]struct{}{}
	)
	for _, p := range partials {
		args := l.Apply(p).Terms
		tuples, err := pred.Enumerate(state, args)
		if err != nil {
			return nil, err
		}
		for _, tuple := range tuples {
			if len(tuple) != len(args) {
				return nil, fmt.Errorf("oracle returned %d values for %d arguments", len(tuple), len(args))
			}
			next, ok := extend(p, args, tuple)
			if !ok {
				continue
			}
			if _, dup := seen[next.Key()]; dup {
				continue
			}
			seen[next.Key()] = struct{}{}
			extended = append(extended, next)
		}
	}
	return extended, nil
}

func extend(p logic.Grounding, args, tuple []logic.Term) (logic.Grounding, bool) {
	next := p.Clone()
	for i, a := range args {
		if tuple[i].Variable {
			return nil, false
		}
		if !a.Variable {
			if a != tuple[i] {
				return nil, false
			}
			continue
		}
		if !next.Bind(a, tuple[i]) {
			return nil, false
		}
	}
	return next, true
}
