package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/tabcall/internal/util"
)

const (
	videoMTU = 1400
	audioMTU = 1200
)

// RTPSource ingests already-encoded RTP from local UDP ports, e.g. a
// GStreamer or ffmpeg pipeline started by the user, into local tracks.
// Empty addresses skip that kind.
type RTPSource struct {
	VideoAddr  string
	AudioAddr  string
	VideoCodec string // MIME type; defaults to VP8
}

// feed describes one UDP → track pump.
type feed struct {
	addr  string
	kind  string
	codec webrtc.RTPCodecCapability
	mtu   int
}

func (s *RTPSource) feeds() []feed {
	var out []feed
	if s.VideoAddr != "" {
		mime := s.VideoCodec
		if mime == "" {
			mime = webrtc.MimeTypeVP8
		}
		out = append(out, feed{addr: s.VideoAddr, kind: "video", codec: webrtc.RTPCodecCapability{MimeType: mime}, mtu: videoMTU})
	}
	if s.AudioAddr != "" {
		out = append(out, feed{addr: s.AudioAddr, kind: "audio", codec: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, mtu: audioMTU})
	}
	return out
}

// Acquire binds every configured UDP port and starts one pump per track.
// On failure nothing stays bound.
func (s *RTPSource) Acquire(ctx context.Context) (*Local, error) {
	feeds := s.feeds()
	if len(feeds) == 0 {
		return nil, errors.New("no RTP input configured")
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	var (
		wg     sync.WaitGroup
		conns  []*net.UDPConn
		tracks []webrtc.TrackLocal
	)
	release := func() {
		cancel()
		for _, c := range conns {
			c.Close()
		}
		wg.Wait()
	}

	for _, f := range feeds {
		if err := ctx.Err(); err != nil {
			release()
			return nil, err
		}

		track, err := webrtc.NewTrackLocalStaticRTP(f.codec, f.kind, "tabcall")
		if err != nil {
			release()
			return nil, fmt.Errorf("create %s track: %w", f.kind, err)
		}

		conn, err := listenUDP(f.addr)
		if err != nil {
			release()
			return nil, fmt.Errorf("listen for %s RTP: %w", f.kind, err)
		}
		conns = append(conns, conn)
		tracks = append(tracks, track)

		wg.Add(1)
		go func() {
			defer wg.Done()
			pumpRTP(pumpCtx, conn, track, f.mtu, f.kind)
		}()
		util.Stats.AddLocalTrack()
		util.LogInfo("reading %s RTP on %s", f.kind, conn.LocalAddr())
	}

	return NewLocal(tracks, release), nil
}

func listenUDP(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", udpAddr)
}

// pumpRTP forwards RTP packets read from conn to track until ctx ends or
// conn is closed. Datagrams that are not RTP are ignored.
func pumpRTP(ctx context.Context, conn *net.UDPConn, track *webrtc.TrackLocalStaticRTP, mtu int, tag string) {
	buf := make([]byte, mtu)
	for {
		// keep the read unblocked with a short timeout
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if !errors.Is(err, net.ErrClosed) {
				util.LogError("%s RTP read failed: %v", tag, err)
			}
			return
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if err := track.WriteRTP(&pkt); err != nil {
			if errors.Is(err, io.ErrClosedPipe) {
				return
			}
			util.LogError("%s track write failed: %v", tag, err)
			return
		}
		util.Stats.AddSent(n)
	}
}
