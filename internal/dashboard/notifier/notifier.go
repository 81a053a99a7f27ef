// Package notifier tells open dashboard tabs that a new dataset was loaded.
package notifier

import "sync"

// Load describes one successful dataset load. Seq starts at 1 and grows by
// one per load.
type Load struct {
	Seq  uint64
	Name string
	Rows int
}

// Notifier fans dataset loads out to every subscribed tab. Each listener
// holds at most one pending Load, always the newest.
type Notifier struct {
	mu        sync.Mutex
	last      Load
	listeners map[chan Load]struct{}
}

// New creates a Notifier with no loads recorded.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Load]struct{}),
	}
}

// Seq returns the sequence number of the latest load, or 0.
func (n *Notifier) Seq() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last.Seq
}

// Subscribe returns a channel that receives loads newer than seen. If a newer
// load already happened, it is pending on the channel at once, so a tab
// rendered just before an upload still catches it. The caller must call
// Unsubscribe when done.
func (n *Notifier) Subscribe(seen uint64) chan Load {
	ch := make(chan Load, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	if n.last.Seq > seen {
		ch <- n.last
	}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Load) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Len reports the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

// Broadcast records a load and delivers it without blocking. A pending,
// unread load is replaced by the new one.
func (n *Notifier) Broadcast(name string, rows int) Load {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.last = Load{Seq: n.last.Seq + 1, Name: name, Rows: rows}
	for ch := range n.listeners {
		select {
		case <-ch:
		default:
		}
		// only Broadcast and Subscribe send, both under mu
		ch <- n.last
	}
	return n.last
}
