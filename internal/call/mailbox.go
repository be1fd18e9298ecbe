package call

import "sync"

// mailbox is an unbounded FIFO of loop events. post never blocks, so bus
// readers and engine callback goroutines are never held up by the loop.
type mailbox struct {
	mu     sync.Mutex
	items  []any
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) post(ev any) {
	m.mu.Lock()
	m.items = append(m.items, ev)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// drain removes and returns everything queued so far, oldest first.
func (m *mailbox) drain() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

// ready is signalled after at least one post since the last drain.
func (m *mailbox) ready() <-chan struct{} { return m.notify }
