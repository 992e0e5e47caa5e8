package logic

import (
	"sort"
	"strings"
)

// FactSet is an unordered, duplicate-free collection of literals. As a
// planning state it holds positive ground literals and is read under the
// closed-world assumption: a literal that is absent is false.
//
// The zero value is an empty set ready to use.
type FactSet struct {
	facts map[string]Literal
}

// NewFactSet returns a set containing the given literals.
func NewFactSet(ls ...Literal) *FactSet {
	s := &FactSet{facts: make(map[string]Literal, len(ls))}
	for _, l := range ls {
		s.facts[l.Key()] = l
	}
	return s
}

// MustParseFactSet builds a set from literal strings; see MustParseLiteral.
func MustParseFactSet(ss ...string) *FactSet {
	return NewFactSet(MustParseLiterals(ss...)...)
}

func (s *FactSet) init() {
	if s.facts == nil {
		s.facts = map[string]Literal{}
	}
}

// Add inserts l and reports whether the set changed.
func (s *FactSet) Add(l Literal) bool {
	s.init()
	k := l.Key()
	if _, ok := s.facts[k]; ok {
		return false
	}
	s.facts[k] = l
	return true
}

// AddAll inserts every literal.
func (s *FactSet) AddAll(ls ...Literal) {
	for _, l := range ls {
		s.Add(l)
	}
}

// Remove deletes l and reports whether the set changed.
func (s *FactSet) Remove(l Literal) bool {
	if s == nil || s.facts == nil {
		return false
	}
	k := l.Key()
	if _, ok := s.facts[k]; !ok {
		return false
	}
	delete(s.facts, k)
	return true
}

func (s *FactSet) Contains(l Literal) bool {
	if s == nil || s.facts == nil {
		return false
	}
	_, ok := s.facts[l.Key()]
	return ok
}

// ContainsAll reports whether every literal in ls is a member.
func (s *FactSet) ContainsAll(ls ...Literal) bool {
	for _, l := range ls {
		if !s.Contains(l) {
			return false
		}
	}
	return true
}

// Holds evaluates a ground literal under the closed-world assumption: a
// positive literal holds iff it is a member, a negated one iff its positive
// counterpart is absent.
func (s *FactSet) Holds(l Literal) bool {
	if l.Negated {
		return !s.Contains(l.Positive())
	}
	return s.Contains(l)
}

// Satisfies reports whether every ground literal of the pattern holds.
func (s *FactSet) Satisfies(pattern ...Literal) bool {
	for _, l := range pattern {
		if !s.Holds(l) {
			return false
		}
	}
	return true
}

func (s *FactSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.facts)
}

func (s *FactSet) IsEmpty() bool {
	return s.Len() == 0
}

// Clone returns an independent copy.
func (s *FactSet) Clone() *FactSet {
	c := &FactSet{facts: make(map[string]Literal, s.Len())}
	if s != nil {
		for k, l := range s.facts {
			c.facts[k] = l
		}
	}
	return c
}

// Union returns a new set holding the members of s and o.
func (s *FactSet) Union(o *FactSet) *FactSet {
	u := s.Clone()
	if o != nil {
		for k, l := range o.facts {
			u.facts[k] = l
		}
	}
	return u
}

// Difference returns a new set holding the members of s that are not in o.
func (s *FactSet) Difference(o *FactSet) *FactSet {
	d := &FactSet{facts: make(map[string]Literal, s.Len())}
	if s == nil {
		return d
	}
	for k, l := range s.facts {
		if o != nil {
			if _, ok := o.facts[k]; ok {
				continue
			}
		}
		d.facts[k] = l
	}
	return d
}

// Intersection returns a new set holding the members common to s and o.
func (s *FactSet) Intersection(o *FactSet) *FactSet {
	i := &FactSet{facts: map[string]Literal{}}
	if s == nil || o == nil {
		return i
	}
	for k, l := range s.facts {
		if _, ok := o.facts[k]; ok {
			i.facts[k] = l
		}
	}
	return i
}

// Intersects reports whether s and o share at least one member.
func (s *FactSet) Intersects(o *FactSet) bool {
	if s.Len() > o.Len() {
		s, o = o, s
	}
	if s == nil {
		return false
	}
	for k := range s.facts {
		if _, ok := o.facts[k]; ok {
			return true
		}
	}
	return false
}

func (s *FactSet) Equal(o *FactSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	if s == nil {
		return true
	}
	for k := range s.facts {
		if _, ok := o.facts[k]; !ok {
			return false
		}
	}
	return true
}

// IsContradictory reports whether the set contains a literal together with
// its negation.
func (s *FactSet) IsContradictory() bool {
	if s == nil {
		return false
	}
	for _, l := range s.facts {
		if l.Negated && s.Contains(l.Positive()) {
			return true
		}
	}
	return false
}

// IsGround reports whether every member is ground.
func (s *FactSet) IsGround() bool {
	if s == nil {
		return true
	}
	for _, l := range s.facts {
		if !l.IsGround() {
			return false
		}
	}
	return true
}

// Literals returns the members sorted by key.
func (s *FactSet) Literals() []Literal {
	keys := s.Keys()
	ls := make([]Literal, len(keys))
	for i, k := range keys {
		ls[i] = s.facts[k]
	}
	return ls
}

// Keys returns the sorted canonical keys of the members.
func (s *FactSet) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.facts))
	for k := range s.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithPredicate returns the members with the given predicate and arity.
func (s *FactSet) WithPredicate(predicate string, arity int) []Literal {
	var ls []Literal
	if s == nil {
		return ls
	}
	for _, l := range s.facts {
		if l.Predicate == predicate && len(l.Terms) == arity {
			ls = append(ls, l)
		}
	}
	return ls
}

// Constants returns the distinct constants used by the members, sorted.
func (s *FactSet) Constants() []Term {
	seen := map[Term]struct{}{}
	var out []Term
	if s == nil {
		return out
	}
	for _, l := range s.facts {
		for _, t := range l.Terms {
			if t.Variable {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	SortTerms(out)
	return out
}

func (s *FactSet) String() string {
	ls := s.Literals()
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = l.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
