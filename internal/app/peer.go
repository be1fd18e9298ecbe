package app

import (
	"context"
	"errors"
	"sync"

	"github.com/pterm/pterm"

	"github.com/1ureka/tabcall/internal/bus"
	"github.com/1ureka/tabcall/internal/call"
	"github.com/1ureka/tabcall/internal/config"
	"github.com/1ureka/tabcall/internal/util"
)

const (
	menuStart  = "Start call"
	menuHangUp = "Hang up"
	menuStatus = "Status"
	menuQuit   = "Quit"
)

// RunPeer orchestrates one participant:
//  1. Connect to the hub channel
//  2. Start the coordinator loop
//  3. Start a call right away, or drive calls from the interactive menu
//  4. Hang up and disconnect on exit
func RunPeer(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ── 1. Hub connection ──────────────────────────────────────────────
	sock, err := bus.Dial(ctx, bus.ChannelURL(cfg.HubAddr, cfg.Channel))
	if err != nil {
		return err
	}
	defer sock.Close()

	// The socket outlives ctx so the final bye still reaches the hub.
	sockCtx, stopSock := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := sock.Run(sockCtx); err != nil && !errors.Is(err, context.Canceled) {
			util.LogWarning("signaling hub connection lost: %v", err)
		}
	}()

	// ── 2. Coordinator ─────────────────────────────────────────────────
	c, sink := newParticipant(cfg, cfg.ID, sock, mediaSource(cfg))
	util.LogSuccess("joined channel %q as %s", cfg.Channel, c.ID())

	loopCtx, stopLoop := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		stopSock()
		wg.Wait()
	}()

	util.StartStatsReporter(ctx)

	// ── 3. Calls ───────────────────────────────────────────────────────
	if cfg.AutoStart {
		if err := c.StartCall(ctx, nil); err != nil && !errors.Is(err, call.ErrCallActive) {
			return err
		}
		<-ctx.Done()
	} else {
		runMenu(ctx, c, sink.Active)
	}

	// ── 4. Hang up while the hub is still reachable ────────────────────
	endCtx, endCancel := context.WithTimeout(context.Background(), callTimeout)
	defer endCancel()
	if err := c.EndCall(endCtx); err != nil {
		util.LogDebug("hang up on exit: %v", err)
	}
	return nil
}

// runMenu shows the call menu until the user quits or ctx ends.
func runMenu(ctx context.Context, c *call.Coordinator, activeTracks func() int) {
	for ctx.Err() == nil {
		choice, err := pterm.DefaultInteractiveSelect.
			WithOptions([]string{menuStart, menuHangUp, menuStatus, menuQuit}).
			WithDefaultText("Call").
			Show()
		if err != nil || ctx.Err() != nil {
			return
		}

		switch choice {
		case menuStart:
			if err := c.StartCall(ctx, nil); err != nil {
				util.LogWarning("cannot start call: %v", err)
			}
		case menuHangUp:
			if err := c.EndCall(ctx); err != nil {
				util.LogWarning("cannot hang up: %v", err)
			}
		case menuStatus:
			snap, err := c.Snapshot(ctx)
			if err != nil {
				return
			}
			util.LogInfo("sender: %s | receiver: %s | calling: %v | remote tracks: %d",
				snap.Sender, snap.Receiver, snap.Calling, activeTracks())
		case menuQuit:
			return
		}
	}
}
