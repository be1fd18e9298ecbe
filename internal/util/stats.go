package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide media counter.
var Stats = &stats{}

type stats struct {
	LocalTracks  atomic.Int64 // cumulative local tracks fed since process start
	RemoteTracks atomic.Int64 // cumulative remote tracks received since process start
	BytesSent    atomic.Int64 // cumulative RTP bytes written to local tracks
	BytesRecv    atomic.Int64 // cumulative RTP bytes read from remote tracks
}

func (s *stats) AddLocalTrack()  { s.LocalTracks.Add(1) }
func (s *stats) AddRemoteTrack() { s.RemoteTracks.Add(1) }
func (s *stats) AddSent(n int)   { s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int)   { s.BytesRecv.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs media throughput every
// 10 seconds while there is traffic. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		var prevSent, prevRecv, prevLocal, prevRemote int64
		for {
			select {
			case <-ticker.C:
				local := Stats.LocalTracks.Load()
				remote := Stats.RemoteTracks.Load()
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()

				outS := float64(sent-prevSent) / reportInterval.Seconds()
				inS := float64(recv-prevRecv) / reportInterval.Seconds()
				newLocal := local - prevLocal
				newRemote := remote - prevRemote

				if newLocal > 0 || newRemote > 0 || inS > 10 || outS > 10 {
					pterm.DefaultLogger.Info(formatStats(inS, outS, newLocal, newRemote))
				}

				prevSent = sent
				prevRecv = recv
				prevLocal = local
				prevRemote = remote

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a fixed-width (8 chars) string,
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB".
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < len(byteUnits)-1 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns the throughput line shown by the reporter.
func formatStats(inS, outS float64, newLocal, newRemote int64) string {
	return fmt.Sprintf("Media in: %s/s | out: %s/s | Tracks: %2d local %2d remote",
		formatBytes(inS),
		formatBytes(outS),
		newLocal,
		newRemote,
	)
}
