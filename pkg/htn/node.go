package htn

import (
	"strings"

	"github.com/operator-framework/hasco/internal/nodestore"
	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
)

type networkKey struct {
	delta planning.Delta
	tasks []logic.Literal
}

type fingerprint struct {
	Added   []string
	Deleted []string
	Tasks   []string
}

func (k networkKey) Fingerprint() interface{} {
	tasks := make([]string, len(k.tasks))
	for i, t := range k.tasks {
		tasks[i] = t.Key()
	}
	return fingerprint{Added: k.delta.Added.Keys(), Deleted: k.delta.Deleted.Keys(), Tasks: tasks}
}

func (k networkKey) Equal(o networkKey) bool {
	if len(k.tasks) != len(o.tasks) || !k.delta.Equal(o.delta) {
		return false
	}
	for i := range k.tasks {
		if !k.tasks[i].Equal(o.tasks[i]) {
			return false
		}
	}
	return true
}

// Node is a state together with the ordered tasks still to be done.
type Node struct {
	record *nodestore.Record[networkKey]
	action planning.Action
}

func (n *Node) ID() int {
	return n.record.ID
}

// Action returns the operator action or method instance leading to n, or
// false for the root.
func (n *Node) Action() (planning.Action, bool) {
	return n.action, !n.action.IsZero()
}

func (n *Node) Delta() planning.Delta {
	return n.record.Key.delta
}

// Tasks returns the remaining task network.
func (n *Node) Tasks() []logic.Literal {
	return append([]logic.Literal(nil), n.record.Key.tasks...)
}

func (n *Node) String() string {
	tasks := make([]string, len(n.record.Key.tasks))
	for i, t := range n.record.Key.tasks {
		tasks[i] = t.String()
	}
	return "[" + strings.Join(tasks, ", ") + "]"
}
