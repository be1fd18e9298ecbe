package call

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/tabcall/internal/engine"
	"github.com/1ureka/tabcall/internal/signaling"
)

// State is the lifecycle state of one negotiation session.
type State int

const (
	StateIdle State = iota
	StateOffering
	StateAwaitingAnswer
	StateAnsweringOffer
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateAnsweringOffer:
		return "answering-offer"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is one negotiation in one direction of a call. It owns exactly
// one engine and is only touched by the coordinator loop.
type Session struct {
	ID    string
	Role  signaling.Role
	State State

	engine    engine.Engine
	remoteSet bool
	pending   []*webrtc.ICECandidateInit
	timer     *time.Timer
	closed    bool
}

// close releases the engine. Only the first call has any effect.
func (s *Session) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.State = StateClosed
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	return s.engine.Close()
}

// Snapshot is the coordinator's session state at one point of the loop.
// An empty slot reports StateIdle.
type Snapshot struct {
	Sender   State
	Receiver State
	Calling  bool // a local call intent is held
}

func stateOf(s *Session) State {
	if s == nil {
		return StateIdle
	}
	return s.State
}
