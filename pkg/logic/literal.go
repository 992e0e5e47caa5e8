package logic

import (
	"fmt"
	"strings"
)

// Literal is a predicate applied to an ordered list of terms, possibly
// negated. Two literals are equal when predicate, polarity and terms are
// equal.
type Literal struct {
	Predicate string
	Negated   bool
	Terms     []Term
}

// NewLiteral returns a positive literal.
func NewLiteral(predicate string, terms ...Term) Literal {
	return Literal{Predicate: predicate, Terms: terms}
}

// Not returns a negated literal.
func Not(predicate string, terms ...Term) Literal {
	return Literal{Predicate: predicate, Negated: true, Terms: terms}
}

// ParseLiteral reads literals of the form "p(a, ?x)" or "!p(a)". A bare
// predicate name without parentheses has arity zero.
func ParseLiteral(s string) (Literal, error) {
	s = strings.TrimSpace(s)
	var l Literal
	if strings.HasPrefix(s, "!") || strings.HasPrefix(s, "~") {
		l.Negated = true
		s = strings.TrimSpace(s[1:])
	}
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if s == "" || strings.ContainsAny(s, "),") {
			return Literal{}, fmt.Errorf("%w: cannot parse literal %q", ErrMalformedPattern, s)
		}
		l.Predicate = s
		return l, nil
	}
	if !strings.HasSuffix(s, ")") || open == 0 {
		return Literal{}, fmt.Errorf("%w: cannot parse literal %q", ErrMalformedPattern, s)
	}
	l.Predicate = strings.TrimSpace(s[:open])
	args := strings.TrimSpace(s[open+1 : len(s)-1])
	if args == "" {
		return l, nil
	}
	for _, arg := range strings.Split(args, ",") {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return Literal{}, fmt.Errorf("%w: empty argument in %q", ErrMalformedPattern, s)
		}
		l.Terms = append(l.Terms, ParseTerm(arg))
	}
	return l, nil
}

// MustParseLiteral is like ParseLiteral but panics on malformed input. It
// is intended for literals written in source code.
func MustParseLiteral(s string) Literal {
	l, err := ParseLiteral(s)
	if err != nil {
		panic(err)
	}
	return l
}

// MustParseLiterals parses each string with MustParseLiteral.
func MustParseLiterals(ss ...string) []Literal {
	ls := make([]Literal, len(ss))
	for i, s := range ss {
		ls[i] = MustParseLiteral(s)
	}
	return ls
}

func (l Literal) Arity() int {
	return len(l.Terms)
}

// Positive returns the literal with positive polarity.
func (l Literal) Positive() Literal {
	l.Negated = false
	return l
}

// Negate flips the polarity of the literal.
func (l Literal) Negate() Literal {
	l.Negated = !l.Negated
	return l
}

// IsGround reports whether the literal contains only constants.
func (l Literal) IsGround() bool {
	for _, t := range l.Terms {
		if t.Variable {
			return false
		}
	}
	return true
}

// Variables returns the distinct variables of the literal in order of
// first occurrence.
func (l Literal) Variables() []Term {
	var vars []Term
	seen := map[Term]struct{}{}
	for _, t := range l.Terms {
		if !t.Variable {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		vars = append(vars, t)
	}
	return vars
}

// Apply substitutes bound variables. Unbound variables are kept.
func (l Literal) Apply(g Grounding) Literal {
	terms := make([]Term, len(l.Terms))
	for i, t := range l.Terms {
		terms[i] = g.Resolve(t)
	}
	return Literal{Predicate: l.Predicate, Negated: l.Negated, Terms: terms}
}

func (l Literal) Equal(o Literal) bool {
	if l.Predicate != o.Predicate || l.Negated != o.Negated || len(l.Terms) != len(o.Terms) {
		return false
	}
	for i := range l.Terms {
		if l.Terms[i] != o.Terms[i] {
			return false
		}
	}
	return true
}

// Key returns a canonical string identifying the literal.
func (l Literal) Key() string {
	var b strings.Builder
	if l.Negated {
		b.WriteByte('!')
	}
	b.WriteString(l.Predicate)
	for _, t := range l.Terms {
		b.WriteByte(0x1f)
		if t.Variable {
			b.WriteByte('?')
		}
		b.WriteString(t.Name)
	}
	return b.String()
}

func (l Literal) String() string {
	args := make([]string, len(l.Terms))
	for i, t := range l.Terms {
		args[i] = t.String()
	}
	s := fmt.Sprintf("%s(%s)", l.Predicate, strings.Join(args, ", "))
	if l.Negated {
		return "!" + s
	}
	return s
}

// ApplyAll applies the grounding to every literal.
func ApplyAll(ls []Literal, g Grounding) []Literal {
	out := make([]Literal, len(ls))
	for i, l := range ls {
		out[i] = l.Apply(g)
	}
	return out
}

// VariablesOf returns the distinct variables occurring in the literals.
func VariablesOf(ls ...Literal) []Term {
	var vars []Term
	seen := map[Term]struct{}{}
	for _, l := range ls {
		for _, v := range l.Variables() {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			vars = append(vars, v)
		}
	}
	return vars
}
