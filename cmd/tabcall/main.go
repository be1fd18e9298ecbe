// tabcall: CLI entry point.
//
// This tool negotiates a direct WebRTC media call between two participants
// on the same device. Signaling travels over a local broadcast channel: a
// WebSocket hub (-mode hub) that peers (-mode peer) connect to, or an
// in-process bus (-mode demo).
//
// It can be launched interactively (no -mode) or non-interactively via CLI
// flags and TABCALL_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/1ureka/tabcall/internal/app"
	"github.com/1ureka/tabcall/internal/config"
	"github.com/1ureka/tabcall/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		util.LogError("%v", err)
		os.Exit(2)
	}

	if cfg.Debug {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("tabcall v%s", version))
	pterm.Println()

	if cfg.Mode == "" {
		cfg.Mode = askMode()
	}

	switch cfg.Mode {
	case config.ModeHub:
		err = app.RunHub(ctx, cfg)
	case config.ModePeer:
		err = app.RunPeer(ctx, cfg)
	case config.ModeDemo:
		err = app.RunDemo(ctx, cfg)
	}
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// askMode falls back to an interactive prompt when no mode is configured.
func askMode() config.Mode {
	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{
			"Hub  - Relay signaling for local peers",
			"Peer - Join a call through the hub",
			"Demo - Two participants in this process",
		}).
		WithDefaultText("Select a mode").
		Show()
	pterm.Println()

	switch {
	case strings.HasPrefix(choice, "Hub"):
		return config.ModeHub
	case strings.HasPrefix(choice, "Peer"):
		return config.ModePeer
	default:
		return config.ModeDemo
	}
}
