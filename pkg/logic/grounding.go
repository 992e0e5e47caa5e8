package logic

import (
	"sort"
	"strings"
)

// Grounding maps variables to constants. A variable is bound at most once
// within one grounding.
type Grounding map[Term]Term

// Resolve returns the constant bound to t, or t itself when t is a constant
// or an unbound variable.
func (g Grounding) Resolve(t Term) Term {
	if !t.Variable {
		return t
	}
	if c, ok := g[t]; ok {
		return c
	}
	return t
}

// Bound reports whether the variable v has a binding.
func (g Grounding) Bound(v Term) bool {
	_, ok := g[v]
	return ok
}

// Bind records v -> c. It returns false, leaving g untouched, when v is
// already bound to a different constant.
func (g Grounding) Bind(v, c Term) bool {
	if !v.Variable {
		return v == c
	}
	if old, ok := g[v]; ok {
		return old == c
	}
	g[v] = c
	return true
}

func (g Grounding) Clone() Grounding {
	c := make(Grounding, len(g)+1)
	for k, v := range g {
		c[k] = v
	}
	return c
}

// Merge returns a new grounding combining g and o, or false when they
// disagree on a variable.
func (g Grounding) Merge(o Grounding) (Grounding, bool) {
	m := g.Clone()
	for k, v := range o {
		if !m.Bind(k, v) {
			return nil, false
		}
	}
	return m, true
}

// Restrict returns the bindings of the given variables only.
func (g Grounding) Restrict(vars []Term) Grounding {
	r := make(Grounding, len(vars))
	for _, v := range vars {
		if c, ok := g[v]; ok {
			r[v] = c
		}
	}
	return r
}

// Unbound returns the variables among vars that have no binding.
func (g Grounding) Unbound(vars []Term) []Term {
	var out []Term
	for _, v := range vars {
		if v.Variable && !g.Bound(v) {
			out = append(out, v)
		}
	}
	return out
}

// Key returns a canonical string for the grounding.
func (g Grounding) Key() string {
	parts := make([]string, 0, len(g))
	for k, v := range g {
		parts = append(parts, k.Name+"="+v.Name)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (g Grounding) String() string {
	return "{" + g.Key() + "}"
}

// Unify extends g so that pattern equals fact. Both literals must have the
// same predicate, polarity and arity. The returned grounding is a copy; g
// is never modified.
func Unify(pattern, fact Literal, g Grounding) (Grounding, bool) {
	if pattern.Predicate != fact.Predicate || pattern.Negated != fact.Negated || len(pattern.Terms) != len(fact.Terms) {
		return nil, false
	}
	out := g.Clone()
	for i, t := range pattern.Terms {
		f := fact.Terms[i]
		if f.Variable {
			return nil, false
		}
		if !out.Bind(t, f) {
			return nil, false
		}
	}
	return out, true
}
