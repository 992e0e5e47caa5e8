package grounding

import (
	"strconv"
	"sync"

	"github.com/operator-framework/hasco/pkg/logic"
)

// FreshConstants hands out constants that are unique for its lifetime.
// Asking twice for the same scope returns the same constant, which keeps
// repeated expansions of one node from inventing new objects. It is safe
// for concurrent use.
type FreshConstants struct {
	prefix string
	mu     sync.Mutex
	next   int
	scopes map[string]logic.Term
}

func NewFreshConstants(prefix string) *FreshConstants {
	return &FreshConstants{prefix: prefix, scopes: map[string]logic.Term{}}
}

// For returns the constant assigned to scope, creating it on first use.
func (f *FreshConstants) For(scope string) logic.Term {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.scopes[scope]; ok {
		return t
	}
	f.next++
	t := logic.Constant(f.prefix + strconv.Itoa(f.next))
	f.scopes[scope] = t
	return t
}
