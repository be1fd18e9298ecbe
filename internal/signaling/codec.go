package signaling

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

var (
	ErrMissingType = errors.New("signaling message has no type")
	ErrMissingSDP  = errors.New("signaling message has no sdp")
)

// wireMessage is the JSON shape of every message except candidate.
type wireMessage struct {
	Type MessageType `json:"type"`
	From string      `json:"from,omitempty"`
	SDP  string      `json:"sdp,omitempty"`
}

// wireCandidate is the JSON shape of a candidate message. candidate,
// sdpMid and sdpMLineIndex are always present and null when unset.
type wireCandidate struct {
	Type             MessageType `json:"type"`
	From             string      `json:"from,omitempty"`
	Role             Role        `json:"role,omitempty"`
	Candidate        *string     `json:"candidate"`
	SDPMid           *string     `json:"sdpMid"`
	SDPMLineIndex    *uint16     `json:"sdpMLineIndex"`
	UsernameFragment *string     `json:"usernameFragment,omitempty"`
}

// wireInbound accepts the union of all fields on decode.
type wireInbound struct {
	Type             MessageType `json:"type"`
	From             string      `json:"from"`
	Role             Role        `json:"role"`
	SDP              string      `json:"sdp"`
	Candidate        *string     `json:"candidate"`
	SDPMid           *string     `json:"sdpMid"`
	SDPMLineIndex    *uint16     `json:"sdpMLineIndex"`
	UsernameFragment *string     `json:"usernameFragment"`
}

// Encode serializes a Message into its JSON wire form.
func Encode(msg Message) ([]byte, error) {
	if msg.Type == "" {
		return nil, ErrMissingType
	}

	if msg.Type != MsgTypeCandidate {
		return json.Marshal(wireMessage{Type: msg.Type, From: msg.From, SDP: msg.SDP})
	}

	w := wireCandidate{Type: msg.Type, From: msg.From, Role: msg.Role}
	if c := msg.Candidate; c != nil {
		candidate := c.Candidate
		w.Candidate = &candidate
		w.SDPMid = c.SDPMid
		w.SDPMLineIndex = c.SDPMLineIndex
		w.UsernameFragment = c.UsernameFragment
	}
	return json.Marshal(w)
}

// Decode parses a JSON wire message. Unknown types decode without error so
// the caller can decide to ignore them; a missing candidate field, null or
// empty, decodes as end of candidates.
func Decode(data []byte) (Message, error) {
	var w wireInbound
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("malformed signaling message: %w", err)
	}
	if w.Type == "" {
		return Message{}, ErrMissingType
	}

	msg := Message{Type: w.Type, From: w.From}

	switch w.Type {
	case MsgTypeOffer, MsgTypeAnswer:
		if w.SDP == "" {
			return Message{}, fmt.Errorf("%s: %w", w.Type, ErrMissingSDP)
		}
		msg.SDP = w.SDP

	case MsgTypeCandidate:
		msg.Role = w.Role
		if w.Candidate != nil && *w.Candidate != "" {
			msg.Candidate = &webrtc.ICECandidateInit{
				Candidate:        *w.Candidate,
				SDPMid:           w.SDPMid,
				SDPMLineIndex:    w.SDPMLineIndex,
				UsernameFragment: w.UsernameFragment,
			}
		}
	}

	return msg, nil
}
