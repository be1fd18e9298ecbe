// Package call implements the negotiation coordinator: it decides which side
// offers, exchanges descriptions and candidates over the signaling bus,
// resolves glare and tears calls down.
//
// A Coordinator owns at most one sender-role and one receiver-role session.
// Every input (bus messages, local intents, engine callbacks, timers) is
// queued to a single loop goroutine, so handlers never run concurrently and
// the check-then-create on the session slots needs no locks.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/tabcall/internal/bus"
	"github.com/1ureka/tabcall/internal/engine"
	"github.com/1ureka/tabcall/internal/media"
	"github.com/1ureka/tabcall/internal/signaling"
	"github.com/1ureka/tabcall/internal/util"
)

// Coordinator negotiates calls for one participant.
type Coordinator struct {
	id        string
	log       util.Tagged
	bus       bus.Bus
	src       media.Source
	newEngine engine.Factory

	onRemoteTrack func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onCallFailed  func(err error)
	answerTimeout time.Duration

	mb      *mailbox
	done    chan struct{}
	running atomic.Bool

	// Owned by the loop.
	ctx      context.Context
	sender   *Session
	receiver *Session
	local    *media.Local
	calling  bool
}

// ──────────────────────────────────────────────────────────────────────────────
// Loop events
// ──────────────────────────────────────────────────────────────────────────────

type inbound struct{ msg signaling.Message }

type startIntent struct {
	local *media.Local
	reply chan error
}

type endIntent struct{ reply chan error }

type snapshotRequest struct{ reply chan Snapshot }

type localCandidate struct {
	s *Session
	c *webrtc.ICECandidateInit
}

type remoteTrack struct {
	s        *Session
	track    *webrtc.TrackRemote
	receiver *webrtc.RTPReceiver
}

type connectionState struct {
	s     *Session
	state webrtc.PeerConnectionState
}

type answerExpired struct{ s *Session }

// ──────────────────────────────────────────────────────────────────────────────
// Public API
// ──────────────────────────────────────────────────────────────────────────────

// New creates a coordinator for participant id on b. src supplies local
// media when this participant joins a call it did not start; it may be nil,
// in which case such calls offer no tracks. An empty id is replaced by a
// generated one.
func New(id string, b bus.Bus, src media.Source, newEngine engine.Factory) *Coordinator {
	if id == "" {
		id = util.ShortID()
	}
	return &Coordinator{
		id:        id,
		log:       util.Tagged(id),
		bus:       b,
		src:       src,
		newEngine: newEngine,
		mb:        newMailbox(),
		done:      make(chan struct{}),
	}
}

// ID returns the participant id carried in published messages.
func (c *Coordinator) ID() string { return c.id }

// OnRemoteTrack registers fn to receive remote tracks. fn runs on the loop
// goroutine and must not block. Register before Run.
func (c *Coordinator) OnRemoteTrack(fn func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.onRemoteTrack = fn
}

// OnCallFailed registers fn to be told about negotiations that were
// abandoned. fn runs on the loop goroutine. Register before Run.
func (c *Coordinator) OnCallFailed(fn func(err error)) {
	c.onCallFailed = fn
}

// SetAnswerTimeout bounds how long an offer waits for its answer. Zero, the
// default, waits forever. Set before Run.
func (c *Coordinator) SetAnswerTimeout(d time.Duration) {
	c.answerTimeout = d
}

// Run subscribes to the bus and processes events until ctx ends. Sessions
// still open at that point are closed without telling the peer.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("coordinator already running")
	}
	defer close(c.done)

	c.ctx = ctx
	unsubscribe := c.bus.Subscribe(func(msg signaling.Message) {
		c.mb.post(inbound{msg: msg})
	})
	defer unsubscribe()

	c.log.Debugf("coordinator running")
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-c.mb.ready():
			for _, ev := range c.mb.drain() {
				c.handle(ev)
			}
		}
	}
}

// StartCall records the intent to call with local and announces it with a
// ready message. A nil local is acquired from the coordinator's media
// source first; acquisition errors are returned as is. Returns
// ErrCallActive if a call is already underway.
func (c *Coordinator) StartCall(ctx context.Context, local *media.Local) error {
	if local == nil && c.src != nil {
		acquired, err := c.src.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire local media: %w", err)
		}
		local = acquired
	}

	select {
	case <-c.done:
		local.Release()
		return ErrStopped
	default:
	}

	reply := make(chan error, 1)
	c.mb.post(startIntent{local: local, reply: reply})
	err := c.await(ctx, reply)
	if errors.Is(err, ErrStopped) {
		local.Release()
	}
	return err
}

// EndCall hangs up: every session is closed, local media is released and
// the peer is sent bye. With nothing to hang up it does nothing.
func (c *Coordinator) EndCall(ctx context.Context) error {
	reply := make(chan error, 1)
	c.mb.post(endIntent{reply: reply})
	return c.await(ctx, reply)
}

// Snapshot returns the session state as seen by the loop after every event
// queued before the call.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	c.mb.post(snapshotRequest{reply: reply})
	select {
	case snap := <-reply:
		return snap, nil
	case <-c.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Coordinator) await(ctx context.Context, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Event dispatch
// ──────────────────────────────────────────────────────────────────────────────

func (c *Coordinator) handle(ev any) {
	switch ev := ev.(type) {
	case inbound:
		c.handleMessage(ev.msg)
	case startIntent:
		ev.reply <- c.startCall(ev.local)
	case endIntent:
		if c.hangup() {
			c.bus.Publish(signaling.Bye(c.id))
		}
		ev.reply <- nil
	case snapshotRequest:
		ev.reply <- Snapshot{Sender: stateOf(c.sender), Receiver: stateOf(c.receiver), Calling: c.calling}
	case localCandidate:
		if c.current(ev.s) {
			c.bus.Publish(signaling.Candidate(c.id, ev.s.Role, ev.c))
		}
	case remoteTrack:
		if c.current(ev.s) && c.onRemoteTrack != nil {
			c.onRemoteTrack(ev.track, ev.receiver)
		}
	case connectionState:
		if c.current(ev.s) {
			c.handleConnectionState(ev.s, ev.state)
		}
	case answerExpired:
		c.handleAnswerExpired(ev.s)
	}
}

func (c *Coordinator) handleMessage(msg signaling.Message) {
	// Our own ready is processed: it is what makes the caller offer.
	if msg.From == c.id && msg.Type != signaling.MsgTypeReady {
		return
	}

	switch msg.Type {
	case signaling.MsgTypeReady:
		c.handleReady()
	case signaling.MsgTypeOffer:
		c.handleOffer(msg)
	case signaling.MsgTypeAnswer:
		c.handleAnswer(msg)
	case signaling.MsgTypeCandidate:
		c.handleCandidate(msg)
	case signaling.MsgTypeBye:
		c.handleBye()
	default:
		c.log.Warnf("ignoring unknown message type %q", msg.Type)
	}
}

// current reports whether s still occupies its slot.
func (c *Coordinator) current(s *Session) bool {
	return s != nil && (s == c.sender || s == c.receiver)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transitions
// ──────────────────────────────────────────────────────────────────────────────

func (c *Coordinator) startCall(local *media.Local) error {
	if c.calling || c.sender != nil {
		local.Release()
		return ErrCallActive
	}
	if c.local != nil && c.local != local {
		c.local.Release()
	}
	c.local = local
	c.calling = true
	c.log.Infof("starting call")
	c.bus.Publish(signaling.Ready(c.id))
	return nil
}

func (c *Coordinator) handleReady() {
	if c.sender != nil {
		c.log.Debugf("already in call, ignoring ready")
		return
	}
	c.makeCall()
}

// makeCall creates the sender session and publishes its offer.
func (c *Coordinator) makeCall() {
	if c.local == nil && c.src != nil {
		local, err := c.src.Acquire(c.ctx)
		if err != nil {
			c.abortCall(fmt.Errorf("acquire local media: %w", err))
			return
		}
		c.local = local
	}

	eng, err := c.newEngine()
	if err != nil {
		c.abortCall(fmt.Errorf("create sender engine: %w", err))
		return
	}
	s := &Session{ID: util.ShortID(), Role: signaling.RoleSender, State: StateOffering, engine: eng}
	c.sender = s
	c.wire(s)

	if err := c.offer(s); err != nil {
		if c.sender == s {
			c.sender = nil
		}
		if cerr := s.close(); cerr != nil {
			c.log.Debugf("close sender %s: %v", s.ID, cerr)
		}
		c.abortCall(err)
		return
	}

	s.State = StateAwaitingAnswer
	if c.answerTimeout > 0 {
		s.timer = time.AfterFunc(c.answerTimeout, func() {
			c.mb.post(answerExpired{s: s})
		})
	}
	c.log.Infof("sent offer (session %s)", s.ID)
}

func (c *Coordinator) offer(s *Session) error {
	if c.local != nil {
		for _, track := range c.local.Tracks {
			if err := s.engine.AddTrack(track); err != nil {
				return fmt.Errorf("add %s track: %w", track.Kind(), err)
			}
		}
	}
	desc, err := s.engine.CreateOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := s.engine.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("set local offer: %w", err)
	}
	c.bus.Publish(signaling.Offer(c.id, desc.SDP))
	return nil
}

// abortCall reports a failed makeCall and drops the call intent with its
// media, leaving state as if the call had never been started.
func (c *Coordinator) abortCall(err error) {
	c.local.Release()
	c.local = nil
	c.calling = false
	c.failed(err)
}

func (c *Coordinator) handleOffer(msg signaling.Message) {
	if c.receiver != nil {
		c.log.Warnf("offer conflict: already answering (session %s), ignoring", c.receiver.ID)
		return
	}

	eng, err := c.newEngine()
	if err != nil {
		c.failed(fmt.Errorf("create receiver engine: %w", err))
		return
	}
	s := &Session{ID: util.ShortID(), Role: signaling.RoleReceiver, State: StateAnsweringOffer, engine: eng}
	c.receiver = s
	c.wire(s)

	if err := c.answer(s, msg.SDP); err != nil {
		if c.receiver == s {
			c.receiver = nil
		}
		if cerr := s.close(); cerr != nil {
			c.log.Debugf("close receiver %s: %v", s.ID, cerr)
		}
		c.failed(err)
		return
	}

	s.State = StateConnected
	c.log.Infof("sent answer (session %s)", s.ID)
}

func (c *Coordinator) answer(s *Session, sdp string) error {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := s.engine.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote offer: %w", err)
	}
	c.remoteSet(s)

	desc, err := s.engine.CreateAnswer()
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := s.engine.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("set local answer: %w", err)
	}
	c.bus.Publish(signaling.Answer(c.id, desc.SDP))
	return nil
}

func (c *Coordinator) handleAnswer(msg signaling.Message) {
	s := c.sender
	if s == nil || (s.State != StateOffering && s.State != StateAwaitingAnswer) {
		c.log.Warnf("answer without pending offer, ignoring")
		return
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: msg.SDP}
	if err := s.engine.SetRemoteDescription(answer); err != nil {
		c.sender = nil
		if cerr := s.close(); cerr != nil {
			c.log.Debugf("close sender %s: %v", s.ID, cerr)
		}
		c.failed(fmt.Errorf("set remote answer: %w", err))
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.State = StateConnected
	c.remoteSet(s)
	c.log.Infof("call connected (session %s)", s.ID)
}

// remoteSet marks s ready for candidates and applies those buffered so far.
func (c *Coordinator) remoteSet(s *Session) {
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	for _, cand := range pending {
		c.addCandidate(s, cand)
	}
}

func (c *Coordinator) handleCandidate(msg signaling.Message) {
	var targets []*Session
	if msg.Role != "" {
		var s *Session
		if msg.Role.Peer() == signaling.RoleSender {
			s = c.sender
		} else {
			s = c.receiver
		}
		if s != nil {
			targets = append(targets, s)
		}
	} else {
		for _, s := range []*Session{c.sender, c.receiver} {
			if s != nil {
				targets = append(targets, s)
			}
		}
	}

	if len(targets) == 0 {
		c.log.Warnf("dropping candidate: no session for it")
		return
	}
	for _, s := range targets {
		if !s.remoteSet {
			s.pending = append(s.pending, msg.Candidate)
			continue
		}
		c.addCandidate(s, msg.Candidate)
	}
}

func (c *Coordinator) addCandidate(s *Session, cand *webrtc.ICECandidateInit) {
	if err := s.engine.AddICECandidate(cand); err != nil {
		c.log.Warnf("add candidate to %s %s: %v", s.Role, s.ID, err)
	}
}

func (c *Coordinator) handleBye() {
	// Without a sender the receiver is left open until the local EndCall.
	if c.sender == nil {
		c.log.Debugf("bye with no call, ignoring")
		return
	}
	c.log.Infof("peer hung up")
	c.hangup()
}

// hangup closes both sessions and drops the call intent. It reports whether
// there was anything to tear down.
func (c *Coordinator) hangup() bool {
	torn := c.calling || c.local != nil
	for _, s := range []*Session{c.sender, c.receiver} {
		if s == nil {
			continue
		}
		torn = true
		if err := s.close(); err != nil {
			c.log.Debugf("close %s %s: %v", s.Role, s.ID, err)
		}
	}
	c.sender = nil
	c.receiver = nil

	c.local.Release()
	c.local = nil
	c.calling = false

	if torn {
		c.log.Infof("call ended")
	}
	return torn
}

func (c *Coordinator) handleConnectionState(s *Session, state webrtc.PeerConnectionState) {
	switch state {
	case webrtc.PeerConnectionStateConnected:
		c.log.Infof("%s %s media connected", s.Role, s.ID)
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
		c.log.Warnf("%s %s connection %s", s.Role, s.ID, state)
	default:
		c.log.Debugf("%s %s connection %s", s.Role, s.ID, state)
	}
}

func (c *Coordinator) handleAnswerExpired(s *Session) {
	if s != c.sender || s.State != StateAwaitingAnswer {
		return
	}
	c.log.Warnf("no answer for session %s, giving up", s.ID)
	c.sender = nil
	if err := s.close(); err != nil {
		c.log.Debugf("close sender %s: %v", s.ID, err)
	}
	c.failed(ErrAnswerTimeout)
}

func (c *Coordinator) failed(err error) {
	c.log.Errorf("call failed: %v", err)
	if c.onCallFailed != nil {
		c.onCallFailed(err)
	}
}

// wire routes s's engine callbacks into the loop.
func (c *Coordinator) wire(s *Session) {
	s.engine.OnICECandidate(func(cand *webrtc.ICECandidateInit) {
		c.mb.post(localCandidate{s: s, c: cand})
	})
	s.engine.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		c.mb.post(remoteTrack{s: s, track: track, receiver: receiver})
	})
	s.engine.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.mb.post(connectionState{s: s, state: state})
	})
}

// shutdown closes whatever is open and releases media still queued in
// unprocessed start requests.
func (c *Coordinator) shutdown() {
	c.hangup()
	for _, ev := range c.mb.drain() {
		if start, ok := ev.(startIntent); ok {
			start.local.Release()
		}
	}
	c.log.Debugf("coordinator stopped")
}
