// Package media adapts already-prepared media to the call coordinator:
// local tracks handed to a call, and the output side for remote tracks.
// It does not capture or mix anything itself.
package media

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Local is the set of local tracks owned by one call. Release stops
// whatever feeds them and is safe to call more than once.
type Local struct {
	Tracks []webrtc.TrackLocal

	release func()
	once    sync.Once
}

// NewLocal bundles tracks with the function that releases them. release may
// be nil.
func NewLocal(tracks []webrtc.TrackLocal, release func()) *Local {
	return &Local{Tracks: tracks, release: release}
}

// Release stops the producers of l's tracks. A nil Local is a no-op.
func (l *Local) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if l.release != nil {
			l.release()
		}
	})
}

// Source provides local media for a call. Acquire may block for as long as
// the underlying producer needs (device permission, pipeline start-up).
type Source interface {
	Acquire(ctx context.Context) (*Local, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Local, error)

func (f SourceFunc) Acquire(ctx context.Context) (*Local, error) { return f(ctx) }
