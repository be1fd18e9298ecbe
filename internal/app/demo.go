package app

import (
	"context"
	"fmt"
	"time"

	"github.com/1ureka/tabcall/internal/bus"
	"github.com/1ureka/tabcall/internal/call"
	"github.com/1ureka/tabcall/internal/config"
	"github.com/1ureka/tabcall/internal/media"
	"github.com/1ureka/tabcall/internal/util"
)

const (
	callTimeout  = 5 * time.Second
	pollInterval = 50 * time.Millisecond
)

// demo is two participants sharing an in-process bus, the way two browser
// tabs share a broadcast channel.
type demo struct {
	tabs [2]*call.Coordinator
	stop context.CancelFunc
	done chan struct{}
}

// startDemo runs both coordinators and has the first one start a call.
func startDemo(ctx context.Context, cfg *config.Config) (*demo, error) {
	mem := bus.NewMemory()
	loopCtx, stop := context.WithCancel(context.Background())
	d := &demo{stop: stop, done: make(chan struct{})}

	for i := range d.tabs {
		d.tabs[i], _ = newParticipant(cfg, fmt.Sprintf("tab-%d", i+1), mem, media.Placeholder(fmt.Sprintf("tab-%d", i+1)))
	}

	remaining := len(d.tabs)
	finished := make(chan struct{}, len(d.tabs))
	for _, c := range d.tabs {
		go func() {
			if err := c.Run(loopCtx); err != nil {
				util.LogError("%s stopped: %v", c.ID(), err)
			}
			finished <- struct{}{}
		}()
	}
	go func() {
		for ; remaining > 0; remaining-- {
			<-finished
		}
		close(d.done)
	}()

	if err := d.tabs[0].StartCall(ctx, nil); err != nil {
		d.close()
		return nil, fmt.Errorf("start call: %w", err)
	}
	return d, nil
}

// waitConnected polls until both tabs have both directions negotiated.
func (d *demo) waitConnected(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if d.connected(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *demo) connected(ctx context.Context) bool {
	for _, c := range d.tabs {
		snap, err := c.Snapshot(ctx)
		if err != nil || snap.Sender != call.StateConnected || snap.Receiver != call.StateConnected {
			return false
		}
	}
	return true
}

func (d *demo) close() {
	d.stop()
	<-d.done
}

// RunDemo negotiates a call between two in-process participants, keeps it
// up until ctx is cancelled, then hangs up from the first tab.
func RunDemo(ctx context.Context, cfg *config.Config) error {
	d, err := startDemo(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	waitCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := d.waitConnected(waitCtx); err != nil {
		return fmt.Errorf("demo call did not connect: %w", err)
	}
	util.LogSuccess("tab-1 and tab-2 negotiated both directions; press Ctrl+C to hang up")

	<-ctx.Done()

	endCtx, endCancel := context.WithTimeout(context.Background(), callTimeout)
	defer endCancel()
	return d.tabs[0].EndCall(endCtx)
}
