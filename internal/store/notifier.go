package store

import (
	"sync"
)

// Notifier is a topic-keyed change broadcaster. Subscribers get a
// coalesced signal channel: a notification that arrives while one is
// already pending is dropped, so slow readers never block writers.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[int]chan struct{}
	next int
}

// NewNotifier creates an empty notifier
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[string]map[int]chan struct{}),
	}
}

// Subscribe registers interest in a topic. The returned cancel func
// must be called when the subscriber goes away.
func (n *Notifier) Subscribe(topic string) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	id := n.next
	n.next++
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[int]chan struct{})
	}
	n.subs[topic][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if set, ok := n.subs[topic]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(n.subs, topic)
			}
		}
	}
	return ch, cancel
}

// Notify signals every subscriber of the topic without blocking
func (n *Notifier) Notify(topic string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
