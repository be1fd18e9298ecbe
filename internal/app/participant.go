// Package app wires the coordinator to its collaborators for each run mode.
package app

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/tabcall/internal/bus"
	"github.com/1ureka/tabcall/internal/call"
	"github.com/1ureka/tabcall/internal/config"
	"github.com/1ureka/tabcall/internal/engine"
	"github.com/1ureka/tabcall/internal/media"
	"github.com/1ureka/tabcall/internal/util"
)

// mediaSource picks the RTP input when one is configured and falls back to
// silent placeholder tracks otherwise.
func mediaSource(cfg *config.Config) media.Source {
	if cfg.HasMediaInput() {
		return &media.RTPSource{
			VideoAddr:  cfg.VideoIn,
			AudioAddr:  cfg.AudioIn,
			VideoCodec: cfg.VideoCodec,
		}
	}
	return media.Placeholder("tabcall")
}

// newParticipant builds a coordinator with id on b, using pion engines and
// forwarding remote tracks to a sink built from cfg.
func newParticipant(cfg *config.Config, id string, b bus.Bus, src media.Source) (*call.Coordinator, *media.Sink) {
	sink := &media.Sink{VideoOut: cfg.VideoOut, AudioOut: cfg.AudioOut}
	factory := engine.NewPionFactory(engine.ICEConfig{STUNServers: cfg.STUNServers})

	c := call.New(id, b, src, factory)
	c.SetAnswerTimeout(cfg.AnswerTimeout)
	c.OnRemoteTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		go sink.Play(track)
	})
	log := util.Tagged(c.ID())
	c.OnCallFailed(func(err error) {
		log.Errorf("call did not connect: %v", err)
	})
	return c, sink
}
