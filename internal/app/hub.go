package app

import (
	"context"

	"github.com/pterm/pterm"

	"github.com/1ureka/tabcall/internal/bus"
	"github.com/1ureka/tabcall/internal/config"
	"github.com/1ureka/tabcall/internal/util"
)

// RunHub serves the signaling relay until ctx is cancelled.
func RunHub(ctx context.Context, cfg *config.Config) error {
	hub := bus.NewHub()
	if _, err := hub.Start(cfg.HubAddr); err != nil {
		return err
	}
	defer hub.Close()

	addr := hub.Addr().String()
	pterm.DefaultBox.WithTitle("Signaling hub").Println(
		"Address : " + addr + "\n" +
			"Channel : " + bus.ChannelURL(addr, cfg.Channel))
	pterm.Println()
	util.LogInfo("waiting for participants; press Ctrl+C to stop")

	<-ctx.Done()
	util.LogInfo("signaling hub stopped")
	return nil
}
