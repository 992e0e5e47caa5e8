package strips

import (
	"github.com/operator-framework/hasco/internal/nodestore"
	"github.com/operator-framework/hasco/pkg/planning"
)

type stateKey struct {
	delta planning.Delta
}

type fingerprint struct {
	Added   []string
	Deleted []string
}

func (k stateKey) Fingerprint() interface{} {
	return fingerprint{Added: k.delta.Added.Keys(), Deleted: k.delta.Deleted.Keys()}
}

func (k stateKey) Equal(o stateKey) bool {
	return k.delta.Equal(o.delta)
}

// Node is a vertex of the planning graph. Nodes reaching the same state
// share one arena record, and therefore one ID, but each node remembers the
// action that produced it on its own path.
type Node struct {
	record *nodestore.Record[stateKey]
	action planning.Action
}

func (n *Node) ID() int {
	return n.record.ID
}

// Action returns the action leading to n, or false for the root.
func (n *Node) Action() (planning.Action, bool) {
	return n.action, !n.action.IsZero()
}

func (n *Node) Delta() planning.Delta {
	return n.record.Key.delta
}

func (n *Node) ExpansionState() nodestore.ExpansionState {
	return n.record.State()
}

func (n *Node) String() string {
	if n.action.IsZero() {
		return "root"
	}
	return n.action.String()
}
