package logic

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
)

// ErrMalformedPattern is returned when a pattern cannot be matched against
// a fact base at all, e.g. because it uses a predicate with the wrong
// arity.
var ErrMalformedPattern = errors.New("malformed pattern")

// Matcher finds groundings that make a literal pattern true in a fact base.
// Positive literals must be members of the fact base and negative literals
// must be absent (closed-world negation). Variables that only occur in
// negative literals, and explicitly requested free variables, range over
// the constants of the fact base plus any extra constants.
//
// A Matcher is not safe for concurrent use when created WithRand.
type Matcher struct {
	facts      *FactSet
	index      map[string][]Literal
	arities    map[string]map[int]struct{}
	signatures map[string]int
	constants  []Term
	rng        *rand.Rand
}

type MatcherOption func(m *Matcher)

// WithConstants adds constants to the domain that unbound variables range
// over.
func WithConstants(constants ...Term) MatcherOption {
	return func(m *Matcher) {
		m.constants = append(m.constants, constants...)
	}
}

// WithSignatures declares predicate arities. Patterns using an undeclared
// predicate, or a declared one with a different arity, are rejected.
func WithSignatures(signatures map[string]int) MatcherOption {
	return func(m *Matcher) {
		m.signatures = signatures
	}
}

// WithRand shuffles candidate facts and constants, so that the first
// groundings of a stream are a random sample rather than a fixed prefix.
func WithRand(rng *rand.Rand) MatcherOption {
	return func(m *Matcher) {
		m.rng = rng
	}
}

func NewMatcher(facts *FactSet, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		facts:   facts,
		index:   map[string][]Literal{},
		arities: map[string]map[int]struct{}{},
	}
	for _, l := range facts.Literals() {
		if l.Negated {
			continue
		}
		k := indexKey(l)
		m.index[k] = append(m.index[k], l)
		if m.arities[l.Predicate] == nil {
			m.arities[l.Predicate] = map[int]struct{}{}
		}
		m.arities[l.Predicate][len(l.Terms)] = struct{}{}
	}
	for _, apply := range opts {
		apply(m)
	}
	m.constants = dedupeConstants(append(facts.Constants(), m.constants...))
	return m
}

func indexKey(l Literal) string {
	return l.Predicate + "/" + strconv.Itoa(len(l.Terms))
}

func dedupeConstants(ts []Term) []Term {
	seen := map[Term]struct{}{}
	out := make([]Term, 0, len(ts))
	for _, t := range ts {
		if t.Variable {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	SortTerms(out)
	return out
}

// Constants returns the domain unbound variables range over.
func (m *Matcher) Constants() []Term {
	return m.constants
}

// Facts returns the fact base the matcher was built for.
func (m *Matcher) Facts() *FactSet {
	return m.facts
}

func (m *Matcher) validate(pattern []Literal) error {
	for _, l := range pattern {
		if l.Predicate == "" {
			return fmt.Errorf("%w: literal without predicate", ErrMalformedPattern)
		}
		if m.signatures != nil {
			arity, ok := m.signatures[l.Predicate]
			if !ok {
				return fmt.Errorf("%w: undeclared predicate %q", ErrMalformedPattern, l.Predicate)
			}
			if arity != len(l.Terms) {
				return fmt.Errorf("%w: %s has arity %d, declared %d", ErrMalformedPattern, l, len(l.Terms), arity)
			}
			continue
		}
		if seen, ok := m.arities[l.Predicate]; ok {
			if _, ok := seen[len(l.Terms)]; !ok {
				return fmt.Errorf("%w: %s does not match the arity of %q in the fact base", ErrMalformedPattern, l, l.Predicate)
			}
		}
	}
	return nil
}

// Match streams every grounding, extending seed, under which the pattern
// holds in the fact base. Each variable in free is bound as well, even if it
// does not occur in the pattern. Streaming stops as soon as yield returns
// false. A pattern without solutions yields nothing and returns nil.
func (m *Matcher) Match(pattern []Literal, seed Grounding, free []Term, yield func(Grounding) bool) error {
	if err := m.validate(pattern); err != nil {
		return err
	}
	if seed == nil {
		seed = Grounding{}
	}
	var pos, neg []Literal
	for _, l := range pattern {
		if l.Negated {
			neg = append(neg, l)
		} else {
			pos = append(pos, l)
		}
	}
	m.matchPositive(pos, neg, free, seed.Clone(), yield)
	return nil
}

// All collects up to limit groundings; a limit of zero or less means no
// limit.
func (m *Matcher) All(pattern []Literal, seed Grounding, free []Term, limit int) ([]Grounding, error) {
	var out []Grounding
	err := m.Match(pattern, seed, free, func(g Grounding) bool {
		out = append(out, g)
		return limit <= 0 || len(out) < limit
	})
	return out, err
}

// matchPositive returns false once the consumer asked to stop.
func (m *Matcher) matchPositive(pos, neg []Literal, free []Term, g Grounding, yield func(Grounding) bool) bool {
	if len(pos) == 0 {
		return m.bindRemaining(neg, free, g, yield)
	}
	i := m.pick(pos, g)
	l := pos[i]
	rest := make([]Literal, 0, len(pos)-1)
	rest = append(rest, pos[:i]...)
	rest = append(rest, pos[i+1:]...)

	candidates := m.index[indexKey(l)]
	if m.rng != nil {
		candidates = append([]Literal(nil), candidates...)
		m.rng.Shuffle(len(candidates), func(a, b int) { candidates[a], candidates[b] = candidates[b], candidates[a] })
	}
	for _, fact := range candidates {
		next, ok := Unify(l, fact, g)
		if !ok || m.violatesNegative(neg, next) {
			continue
		}
		if !m.matchPositive(rest, neg, free, next, yield) {
			return false
		}
	}
	return true
}

// pick prefers the literal with the fewest unbound variables, then the one
// with the fewest candidate facts.
func (m *Matcher) pick(pos []Literal, g Grounding) int {
	best, bestUnbound, bestCandidates := 0, -1, 0
	for i, l := range pos {
		unbound := len(g.Unbound(l.Variables()))
		candidates := len(m.index[indexKey(l)])
		if bestUnbound < 0 || unbound < bestUnbound || (unbound == bestUnbound && candidates < bestCandidates) {
			best, bestUnbound, bestCandidates = i, unbound, candidates
		}
	}
	return best
}

func (m *Matcher) violatesNegative(neg []Literal, g Grounding) bool {
	for _, l := range neg {
		ground := l.Apply(g)
		if ground.IsGround() && m.facts.Contains(ground.Positive()) {
			return true
		}
	}
	return false
}

func (m *Matcher) bindRemaining(neg []Literal, free []Term, g Grounding, yield func(Grounding) bool) bool {
	var open []Term
	seen := map[Term]struct{}{}
	for _, v := range append(VariablesOf(neg...), free...) {
		if !v.Variable || g.Bound(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		open = append(open, v)
	}
	return m.enumerate(open, neg, g, yield)
}

func (m *Matcher) enumerate(open []Term, neg []Literal, g Grounding, yield func(Grounding) bool) bool {
	if len(open) == 0 {
		if m.violatesNegative(neg, g) {
			return true
		}
		return yield(g.Clone())
	}
	constants := m.constants
	if m.rng != nil {
		constants = append([]Term(nil), constants...)
		m.rng.Shuffle(len(constants), func(a, b int) { constants[a], constants[b] = constants[b], constants[a] })
	}
	v := open[0]
	for _, c := range constants {
		next := g.Clone()
		next[v] = c
		if !m.enumerate(open[1:], neg, next, yield) {
			return false
		}
	}
	return true
}
