package engine

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Compile-time interface check.
var _ Engine = (*Pion)(nil)

// Pion wraps a single pion PeerConnection as an Engine.
type Pion struct {
	pc *webrtc.PeerConnection

	closeOnce sync.Once
	closeErr  error
}

// NewPion creates an Engine backed by a new PeerConnection.
func NewPion(config ICEConfig) (*Pion, error) {
	pc, err := webrtc.NewPeerConnection(config.configuration())
	if err != nil {
		return nil, err
	}
	return &Pion{pc: pc}, nil
}

// NewPionFactory returns a Factory producing pion engines that share config.
func NewPionFactory(config ICEConfig) Factory {
	return func() (Engine, error) {
		return NewPion(config)
	}
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer.
func (p *Pion) CreateOffer() (webrtc.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (p *Pion) CreateAnswer() (webrtc.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP and starts candidate gathering.
func (p *Pion) SetLocalDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(desc)
}

// SetRemoteDescription applies the remote SDP.
func (p *Pion) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

// AddICECandidate adds a remote candidate. pion treats an empty candidate
// string as end of candidates.
func (p *Pion) AddICECandidate(candidate *webrtc.ICECandidateInit) error {
	if candidate == nil {
		return p.pc.AddICECandidate(webrtc.ICECandidateInit{})
	}
	return p.pc.AddICECandidate(*candidate)
}

// OnICECandidate forwards gathered candidates in their JSON-ready form.
func (p *Pion) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			fn(nil)
			return
		}
		init := c.ToJSON()
		fn(&init)
	})
}

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

// AddTrack attaches track and drains RTCP for its sender so interceptors
// (NACK, reports) keep running.
func (p *Pion) AddTrack(track webrtc.TrackLocal) error {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return err
	}
	go drainRTCP(sender)
	return nil
}

func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// OnTrack registers the remote track callback.
func (p *Pion) OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	p.pc.OnTrack(fn)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// OnConnectionStateChange registers the PeerConnection state callback.
func (p *Pion) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.pc.OnConnectionStateChange(fn)
}

// ConnectionState returns the current PeerConnection state.
func (p *Pion) ConnectionState() webrtc.PeerConnectionState {
	return p.pc.ConnectionState()
}

// Close shuts down the PeerConnection. Later calls return the first result.
func (p *Pion) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.pc.Close()
		if errors.Is(p.closeErr, webrtc.ErrConnectionClosed) {
			p.closeErr = nil
		}
	})
	return p.closeErr
}
