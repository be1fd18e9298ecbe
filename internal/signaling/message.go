// Package signaling defines the messages exchanged between participants over
// the signaling bus, and their JSON wire encoding.
package signaling

import "github.com/pion/webrtc/v4"

// MessageType identifies the kind of signaling message.
type MessageType string

const (
	MsgTypeReady     MessageType = "ready"
	MsgTypeOffer     MessageType = "offer"
	MsgTypeAnswer    MessageType = "answer"
	MsgTypeCandidate MessageType = "candidate"
	MsgTypeBye       MessageType = "bye"
)

// Known reports whether t is one of the protocol's message types.
func (t MessageType) Known() bool {
	switch t {
	case MsgTypeReady, MsgTypeOffer, MsgTypeAnswer, MsgTypeCandidate, MsgTypeBye:
		return true
	}
	return false
}

// Role is the side a negotiation session plays in one direction of a call.
type Role string

const (
	RoleSender   Role = "sender"   // caller: creates the offer
	RoleReceiver Role = "receiver" // callee: answers the offer
)

// Peer returns the role on the other end of a negotiation.
func (r Role) Peer() Role {
	if r == RoleSender {
		return RoleReceiver
	}
	return RoleSender
}

func (r Role) String() string { return string(r) }

// Message is one signaling message. Which fields are meaningful depends on
// Type:
//
//	ready, bye        no payload
//	offer, answer     SDP
//	candidate         Candidate (nil means end of candidates), Role
//
// From is the publishing participant's id and may be empty for peers that
// do not send it.
type Message struct {
	Type      MessageType
	From      string
	Role      Role
	SDP       string
	Candidate *webrtc.ICECandidateInit
}

// Ready announces that the sender wants a call.
func Ready(from string) Message {
	return Message{Type: MsgTypeReady, From: from}
}

// Offer carries a session description created by a sender-role session.
func Offer(from, sdp string) Message {
	return Message{Type: MsgTypeOffer, From: from, SDP: sdp}
}

// Answer carries a session description created by a receiver-role session.
func Answer(from, sdp string) Message {
	return Message{Type: MsgTypeAnswer, From: from, SDP: sdp}
}

// Candidate carries one trickled ICE candidate gathered by the session
// playing role. A nil candidate marks the end of gathering.
func Candidate(from string, role Role, c *webrtc.ICECandidateInit) Message {
	return Message{Type: MsgTypeCandidate, From: from, Role: role, Candidate: c}
}

// Bye tells the peer to hang up.
func Bye(from string) Message {
	return Message{Type: MsgTypeBye, From: from}
}

// IsEndOfCandidates reports whether m is the final candidate message of a
// negotiation.
func (m Message) IsEndOfCandidates() bool {
	return m.Type == MsgTypeCandidate && m.Candidate == nil
}
