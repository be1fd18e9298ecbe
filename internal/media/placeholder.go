package media

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Placeholder returns a Source of one VP8 and one Opus track with no
// producer. Negotiation succeeds and media sections are present; no
// packets flow.
func Placeholder(streamID string) Source {
	return SourceFunc(func(context.Context) (*Local, error) {
		video, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", streamID)
		if err != nil {
			return nil, fmt.Errorf("create placeholder video track: %w", err)
		}
		audio, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", streamID)
		if err != nil {
			return nil, fmt.Errorf("create placeholder audio track: %w", err)
		}
		return NewLocal([]webrtc.TrackLocal{video, audio}, nil), nil
	})
}
