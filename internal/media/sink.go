package media

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/tabcall/internal/util"
)

// Sink is the output side for remote tracks. Each remote track is read
// until it ends; packets are forwarded to the UDP address selected for its
// kind, the way a browser routes a stream to the chosen output device.
// With no address for a kind, packets are only counted.
type Sink struct {
	VideoOut string
	AudioOut string

	mu     sync.Mutex
	active map[string]string // track id → kind
}

// Play consumes track until it ends. It blocks; run it on its own goroutine.
func (s *Sink) Play(track *webrtc.TrackRemote) {
	if track == nil {
		return
	}
	kind := track.Kind().String()
	r := readerFunc(func(b []byte) (int, error) {
		n, _, err := track.Read(b)
		return n, err
	})
	s.play(track.ID(), track.StreamID(), kind, s.outFor(kind), r)
}

// readerFunc adapts TrackRemote.Read, which also returns interceptor
// attributes, to io.Reader.
type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(b []byte) (int, error) { return f(b) }

// Active returns the number of remote tracks currently playing.
func (s *Sink) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Sink) outFor(kind string) string {
	switch kind {
	case webrtc.RTPCodecTypeVideo.String():
		return s.VideoOut
	case webrtc.RTPCodecTypeAudio.String():
		return s.AudioOut
	}
	return ""
}

// play reads raw RTP from r and writes it to out when set.
func (s *Sink) play(id, streamID, kind, out string, r io.Reader) {
	s.mu.Lock()
	if s.active == nil {
		s.active = make(map[string]string)
	}
	s.active[id] = kind
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	}()

	util.Stats.AddRemoteTrack()
	util.LogInfo("playing remote %s track %s (stream %s)", kind, id, streamID)

	var conn net.Conn
	if out != "" {
		c, err := net.Dial("udp", out)
		if err != nil {
			util.LogError("remote %s output %s unavailable: %v", kind, out, err)
		} else {
			conn = c
			defer conn.Close()
		}
	}

	buf := make([]byte, 1500)
	for {
		n, err := r.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				util.LogDebug("remote %s track %s ended: %v", kind, id, err)
			}
			return
		}
		util.Stats.AddRecv(n)
		if conn != nil {
			// Output loss is tolerated like any UDP sink.
			_, _ = conn.Write(buf[:n])
		}
	}
}
