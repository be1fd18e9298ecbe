package bus

import (
	"github.com/1ureka/tabcall/internal/signaling"
	"github.com/1ureka/tabcall/internal/util"
)

// Compile-time interface check.
var _ Bus = (*Memory)(nil)

// Memory is an in-process broadcast channel. Two coordinators sharing one
// Memory behave like two browser tabs sharing a BroadcastChannel name.
// Messages go through the wire codec on every publish, so subscribers
// never alias each other's values.
type Memory struct {
	subs fanout
}

// NewMemory creates an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish delivers msg synchronously to every current subscriber.
func (m *Memory) Publish(msg signaling.Message) {
	data, err := signaling.Encode(msg)
	if err != nil {
		util.LogError("bus: dropping unencodable %q message: %v", msg.Type, err)
		return
	}
	if err := m.subs.deliver(data); err != nil {
		util.LogError("bus: dropping undecodable message: %v", err)
	}
}

// Subscribe registers fn for every subsequent Publish.
func (m *Memory) Subscribe(fn func(signaling.Message)) func() {
	return m.subs.add(fn)
}
