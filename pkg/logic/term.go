package logic

import (
	"sort"
	"strings"
)

// Term is either a constant (a ground symbol) or a variable that is bound
// during grounding. Terms are comparable and may be used as map keys.
type Term struct {
	Name     string
	Variable bool
}

// Constant returns the constant term with the given name.
func Constant(name string) Term {
	return Term{Name: name}
}

// Variable returns the variable term with the given name. A leading "?"
// is stripped so that "?x" and "x" denote the same variable.
func Variable(name string) Term {
	return Term{Name: strings.TrimPrefix(name, "?"), Variable: true}
}

// Constants is a convenience constructor for a slice of constants.
func Constants(names ...string) []Term {
	terms := make([]Term, len(names))
	for i, name := range names {
		terms[i] = Constant(name)
	}
	return terms
}

// Variables is a convenience constructor for a slice of variables.
func Variables(names ...string) []Term {
	terms := make([]Term, len(names))
	for i, name := range names {
		terms[i] = Variable(name)
	}
	return terms
}

// ParseTerm treats names starting with "?" as variables and everything
// else as constants.
func ParseTerm(s string) Term {
	if strings.HasPrefix(s, "?") {
		return Variable(s)
	}
	return Constant(s)
}

func (t Term) IsConstant() bool {
	return !t.Variable
}

func (t Term) String() string {
	if t.Variable {
		return "?" + t.Name
	}
	return t.Name
}

// SortTerms sorts terms in place, constants before variables and then by
// name.
func SortTerms(terms []Term) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Variable != terms[j].Variable {
			return !terms[i].Variable
		}
		return terms[i].Name < terms[j].Name
	})
}
