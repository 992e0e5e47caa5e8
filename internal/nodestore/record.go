package nodestore

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/operator-framework/hasco/pkg/planning"
)

// ErrAlreadyExpanded is returned when all successors of a record are
// requested a second time. It indicates a bug in the search algorithm.
var ErrAlreadyExpanded = errors.New("node has already been fully expanded")

type ExpansionState int

const (
	Unexpanded ExpansionState = iota
	PartiallyExpanded
	FullyExpanded
)

func (s ExpansionState) String() string {
	switch s {
	case Unexpanded:
		return "Unexpanded"
	case PartiallyExpanded:
		return "PartiallyExpanded"
	case FullyExpanded:
		return "FullyExpanded"
	}
	return "Unknown"
}

// ActionSource computes the actions applicable at a record. A positive
// limit asks for at most that many; with a non-nil rng the result should be
// a random sample.
type ActionSource func(limit int, rng *rand.Rand) ([]planning.Action, error)

// Record is the arena entry of one node. It remembers which actions have
// already been handed out so that every action is served at most once,
// whichever expansion mode asks for it.
type Record[K any] struct {
	ID  int
	Key K

	mu       sync.Mutex
	state    ExpansionState
	returned []planning.Action
	served   map[string]struct{}
	pending  []planning.Action
	computed bool
	bulk     bool
}

func (r *Record[K]) State() ExpansionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Returned lists the actions served so far, in serving order.
func (r *Record[K]) Returned() []planning.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]planning.Action(nil), r.returned...)
}

func (r *Record[K]) serve(a planning.Action) {
	if r.served == nil {
		r.served = map[string]struct{}{}
	}
	r.served[a.Key()] = struct{}{}
	r.returned = append(r.returned, a)
}

func (r *Record[K]) unserved(actions []planning.Action) []planning.Action {
	var out []planning.Action
	for _, a := range actions {
		if _, ok := r.served[a.Key()]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// Next serves one action not handed out before, or false when none is
// left. The first call only samples up to sampleLimit actions; later calls
// compute the complete set once and serve pending[i mod len(pending)].
func (r *Record[K]) Next(i int, source ActionSource, sampleLimit int, rng *rand.Rand) (planning.Action, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case Unexpanded:
		sample, err := source(sampleLimit, rng)
		if err != nil {
			return planning.Action{}, false, err
		}
		if len(sample) == 0 {
			r.state = FullyExpanded
			r.computed = true
			return planning.Action{}, false, nil
		}
		a := sample[index(i, len(sample))]
		r.serve(a)
		r.state = PartiallyExpanded
		return a, true, nil
	case PartiallyExpanded:
		if !r.computed {
			all, err := source(0, nil)
			if err != nil {
				return planning.Action{}, false, err
			}
			r.pending = r.unserved(all)
			r.computed = true
		}
		if len(r.pending) == 0 {
			r.state = FullyExpanded
			return planning.Action{}, false, nil
		}
		j := index(i, len(r.pending))
		a := r.pending[j]
		r.pending = append(r.pending[:j], r.pending[j+1:]...)
		r.serve(a)
		if len(r.pending) == 0 {
			r.state = FullyExpanded
		}
		return a, true, nil
	case FullyExpanded:
		return planning.Action{}, false, nil
	}
	return planning.Action{}, false, nil
}

// index maps any i, negative ones included, into [0, n).
func index(i, n int) int {
	return ((i % n) + n) % n
}

// All serves every action not handed out before. It fails with
// ErrAlreadyExpanded when called twice on the same record.
func (r *Record[K]) All(source ActionSource) ([]planning.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bulk {
		return nil, ErrAlreadyExpanded
	}

	var actions []planning.Action
	if r.computed {
		actions = r.pending
	} else {
		all, err := source(0, nil)
		if err != nil {
			return nil, err
		}
		actions = r.unserved(all)
	}
	for _, a := range actions {
		r.serve(a)
	}
	r.pending = nil
	r.computed = true
	r.bulk = true
	r.state = FullyExpanded
	return actions, nil
}
