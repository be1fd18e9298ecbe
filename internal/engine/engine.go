// Package engine defines the session negotiation engine the call
// coordinator drives, and its pion/webrtc implementation.
//
// An Engine is single-role and single-use: one instance per role per call
// attempt, discarded after Close.
package engine

import "github.com/pion/webrtc/v4"

// Engine performs description and candidate generation and carries media.
// The coordinator only orchestrates calls into it and reacts to its events.
type Engine interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error

	// AddICECandidate adds a remote candidate. nil signals the end of the
	// remote side's candidates and is accepted even if none was added.
	AddICECandidate(candidate *webrtc.ICECandidateInit) error

	// AddTrack attaches a local track to be sent.
	AddTrack(track webrtc.TrackLocal) error

	// OnICECandidate registers the local candidate callback. It fires zero
	// or more times and finally once with nil when gathering completes.
	OnICECandidate(fn func(candidate *webrtc.ICECandidateInit))

	// OnTrack registers the callback fired once per received remote track.
	OnTrack(fn func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))

	// OnConnectionStateChange registers the connection state callback.
	OnConnectionStateChange(fn func(state webrtc.PeerConnectionState))

	Close() error
}

// Factory creates a fresh Engine.
type Factory func() (Engine, error)
