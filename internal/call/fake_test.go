package call

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/tabcall/internal/engine"
	"github.com/1ureka/tabcall/internal/signaling"
)

var errInjected = errors.New("injected failure")

// fakeEngine records what the coordinator asks of it and lets tests fire
// the engine callbacks from their own goroutine, the way pion does.
type fakeEngine struct {
	name   string
	failOn string // method name that returns errInjected

	mu          sync.Mutex
	calls       []string
	local       webrtc.SessionDescription
	remote      *webrtc.SessionDescription
	candidates  []*webrtc.ICECandidateInit
	tracks      []webrtc.TrackLocal
	closeCount  int
	onCandidate func(*webrtc.ICECandidateInit)
	onTrack     func(*webrtc.TrackRemote, *webrtc.RTPReceiver)
	onState     func(webrtc.PeerConnectionState)
}

var _ engine.Engine = (*fakeEngine)(nil)

func (e *fakeEngine) record(call string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
	if e.failOn == call {
		return errInjected
	}
	return nil
}

func (e *fakeEngine) CreateOffer() (webrtc.SessionDescription, error) {
	if err := e.record("CreateOffer"); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-" + e.name}, nil
}

func (e *fakeEngine) CreateAnswer() (webrtc.SessionDescription, error) {
	if err := e.record("CreateAnswer"); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-" + e.name}, nil
}

func (e *fakeEngine) SetLocalDescription(desc webrtc.SessionDescription) error {
	if err := e.record("SetLocalDescription"); err != nil {
		return err
	}
	e.mu.Lock()
	e.local = desc
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) SetRemoteDescription(desc webrtc.SessionDescription) error {
	if err := e.record("SetRemoteDescription"); err != nil {
		return err
	}
	e.mu.Lock()
	e.remote = &desc
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) AddICECandidate(c *webrtc.ICECandidateInit) error {
	if err := e.record("AddICECandidate"); err != nil {
		return err
	}
	e.mu.Lock()
	e.candidates = append(e.candidates, c)
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) AddTrack(track webrtc.TrackLocal) error {
	if err := e.record("AddTrack"); err != nil {
		return err
	}
	e.mu.Lock()
	e.tracks = append(e.tracks, track)
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	e.mu.Lock()
	e.onCandidate = fn
	e.mu.Unlock()
}

func (e *fakeEngine) OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	e.mu.Lock()
	e.onTrack = fn
	e.mu.Unlock()
}

func (e *fakeEngine) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	e.mu.Lock()
	e.onState = fn
	e.mu.Unlock()
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.closeCount++
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) emitCandidate(c *webrtc.ICECandidateInit) {
	e.mu.Lock()
	fn := e.onCandidate
	e.mu.Unlock()
	fn(c)
}

func (e *fakeEngine) emitTrack() {
	e.mu.Lock()
	fn := e.onTrack
	e.mu.Unlock()
	fn(nil, nil)
}

func (e *fakeEngine) closes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeCount
}

func (e *fakeEngine) remoteDesc() *webrtc.SessionDescription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote
}

func (e *fakeEngine) addedCandidates() []*webrtc.ICECandidateInit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*webrtc.ICECandidateInit(nil), e.candidates...)
}

func (e *fakeEngine) trackCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tracks)
}

// engines is a Factory that keeps every engine it made.
type engines struct {
	prefix string
	failOn string // applied to every engine created
	err    error  // returned by the factory itself

	mu   sync.Mutex
	made []*fakeEngine
}

func (f *engines) factory() engine.Factory {
	return func() (engine.Engine, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.err != nil {
			return nil, f.err
		}
		e := &fakeEngine{name: fmt.Sprintf("%s%d", f.prefix, len(f.made)), failOn: f.failOn}
		f.made = append(f.made, e)
		return e, nil
	}
}

func (f *engines) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.made)
}

func (f *engines) get(i int) *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.made[i]
}

// recorder keeps every message seen on a bus.
type recorder struct {
	mu   sync.Mutex
	msgs []signaling.Message
}

func (r *recorder) add(msg signaling.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recorder) all() []signaling.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]signaling.Message(nil), r.msgs...)
}

// count returns how many messages of type t were published by from. An
// empty from matches any publisher.
func (r *recorder) count(t signaling.MessageType, from string) int {
	n := 0
	for _, m := range r.all() {
		if m.Type == t && (from == "" || m.From == from) {
			n++
		}
	}
	return n
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
