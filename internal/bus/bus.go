// Package bus provides the broadcast transport that carries signaling
// messages between participants. Every subscriber on a channel observes
// every published message, including its own; the bus does no filtering
// and gives no delivery guarantee beyond per-publisher ordering.
package bus

import (
	"sync"

	"github.com/1ureka/tabcall/internal/signaling"
)

// Bus is the signaling transport consumed by the call coordinator.
type Bus interface {
	// Publish broadcasts msg to every subscriber. It never reports failure:
	// if the transport is down the message is lost.
	Publish(msg signaling.Message)

	// Subscribe registers fn to be invoked once per delivered message and
	// returns a function that removes the registration.
	Subscribe(fn func(signaling.Message)) (unsubscribe func())
}

type subscriber struct {
	id int
	fn func(signaling.Message)
}

// fanout is the subscriber list shared by the Bus implementations.
// Handlers are invoked outside the lock so they may publish.
type fanout struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

func (f *fanout) add(fn func(signaling.Message)) func() {
	f.mu.Lock()
	f.next++
	id := f.next
	f.subs = append(f.subs, subscriber{id: id, fn: fn})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *fanout) remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.id == id {
			f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
			return
		}
	}
}

// snapshot returns the current handlers in subscription order.
func (f *fanout) snapshot() []func(signaling.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fns := make([]func(signaling.Message), len(f.subs))
	for i, s := range f.subs {
		fns[i] = s.fn
	}
	return fns
}

// deliver decodes data once per handler so no two subscribers share a
// Message value, then invokes each handler in order.
func (f *fanout) deliver(data []byte) error {
	for _, fn := range f.snapshot() {
		msg, err := signaling.Decode(data)
		if err != nil {
			return err
		}
		fn(msg)
	}
	return nil
}
