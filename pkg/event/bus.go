package event

import (
	"sync"
)

// Listener receives events from a Bus. Listeners run on the publishing
// goroutine and must not block.
type Listener func(Message)

// Bus delivers every published event to all current listeners, in
// subscription order. A nil *Bus drops everything.
type Bus struct {
	lock      sync.RWMutex
	next      int
	listeners map[int]Listener
	order     []int
}

func NewBus() *Bus {
	return &Bus{listeners: map[int]Listener{}}
}

// Subscribe registers l and returns a function removing it again.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.lock.Lock()
	defer b.lock.Unlock()
	id := b.next
	b.next++
	b.listeners[id] = l
	b.order = append(b.order, id)
	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		delete(b.listeners, id)
		for i, o := range b.order {
			if o == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *Bus) Publish(m Message) {
	if b == nil {
		return
	}
	b.lock.RLock()
	listeners := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		listeners = append(listeners, b.listeners[id])
	}
	b.lock.RUnlock()
	for _, l := range listeners {
		l(m)
	}
}

// Collect subscribes a listener that records every event with a payload of
// type D. It is meant for tests and tools.
func Collect[D interface{}](b *Bus) (events func() []D, unsubscribe func()) {
	var (
		lock sync.Mutex
		got  []D
	)
	unsubscribe = b.Subscribe(func(m Message) {
		if d, ok := m.Payload().(D); ok {
			lock.Lock()
			got = append(got, d)
			lock.Unlock()
		}
	})
	return func() []D {
		lock.Lock()
		defer lock.Unlock()
		return append([]D(nil), got...)
	}, unsubscribe
}
