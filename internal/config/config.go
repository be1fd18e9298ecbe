// Package config loads the tabcall configuration from TABCALL_* environment
// variables and command-line flags. Flags win over the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/pflag"
)

// Mode selects what the process runs.
type Mode string

const (
	ModeHub  Mode = "hub"  // the local signaling relay
	ModePeer Mode = "peer" // one call participant connected to a hub
	ModeDemo Mode = "demo" // two participants in one process
)

// Valid reports whether m is a known mode. The empty mode means "ask".
func (m Mode) Valid() bool {
	switch m {
	case "", ModeHub, ModePeer, ModeDemo:
		return true
	}
	return false
}

// Config stores every runtime parameter.
type Config struct {
	Mode    Mode   `env:"TABCALL_MODE" env-description:"hub, peer or demo; empty prompts interactively"`
	ID      string `env:"TABCALL_ID" env-description:"participant id; generated when empty"`
	HubAddr string `env:"TABCALL_HUB_ADDR" env-default:"127.0.0.1:8787" env-description:"address the hub listens on and peers dial"`
	Channel string `env:"TABCALL_CHANNEL" env-default:"webrtc" env-description:"signaling channel name"`

	STUNServers []string `env:"TABCALL_STUN" env-default:"stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302" env-description:"comma separated STUN URLs; empty uses host candidates only"`

	VideoIn    string `env:"TABCALL_VIDEO_IN" env-description:"UDP address to read local video RTP from"`
	AudioIn    string `env:"TABCALL_AUDIO_IN" env-description:"UDP address to read local audio RTP from"`
	VideoCodec string `env:"TABCALL_VIDEO_CODEC" env-default:"video/VP8" env-description:"MIME type of the incoming video RTP"`
	VideoOut   string `env:"TABCALL_VIDEO_OUT" env-description:"UDP address remote video RTP is forwarded to"`
	AudioOut   string `env:"TABCALL_AUDIO_OUT" env-description:"UDP address remote audio RTP is forwarded to"`

	AnswerTimeout time.Duration `env:"TABCALL_ANSWER_TIMEOUT" env-default:"0s" env-description:"give up on an unanswered offer after this long; 0 waits forever"`
	AutoStart     bool          `env:"TABCALL_AUTO_START" env-description:"start a call as soon as the peer is connected"`
	Debug         bool          `env:"TABCALL_DEBUG" env-description:"enable debug logging"`
}

// HasMediaInput reports whether any local RTP input is configured.
func (c *Config) HasMediaInput() bool {
	return c.VideoIn != "" || c.AudioIn != ""
}

// Load reads the environment, then applies flags from args (without the
// program name). It returns pflag.ErrHelp when help was requested.
func Load(args []string, usage io.Writer) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	fs := pflag.NewFlagSet("tabcall", pflag.ContinueOnError)
	fs.SetOutput(usage)
	fs.StringVarP((*string)(&cfg.Mode), "mode", "m", string(cfg.Mode), "Mode: hub, peer or demo")
	fs.StringVar(&cfg.ID, "id", cfg.ID, "Participant id")
	fs.StringVarP(&cfg.HubAddr, "hub", "H", cfg.HubAddr, "Hub address (host:port)")
	fs.StringVarP(&cfg.Channel, "channel", "c", cfg.Channel, "Signaling channel")
	fs.StringSliceVarP(&cfg.STUNServers, "stun", "S", cfg.STUNServers, "STUN server URLs")
	fs.StringVar(&cfg.VideoIn, "video-in", cfg.VideoIn, "Local video RTP input (UDP host:port)")
	fs.StringVar(&cfg.AudioIn, "audio-in", cfg.AudioIn, "Local audio RTP input (UDP host:port)")
	fs.StringVar(&cfg.VideoCodec, "video-codec", cfg.VideoCodec, "Video input MIME type")
	fs.StringVar(&cfg.VideoOut, "video-out", cfg.VideoOut, "Remote video RTP output (UDP host:port)")
	fs.StringVar(&cfg.AudioOut, "audio-out", cfg.AudioOut, "Remote audio RTP output (UDP host:port)")
	fs.DurationVar(&cfg.AnswerTimeout, "answer-timeout", cfg.AnswerTimeout, "Abandon an unanswered offer after this long (0 = never)")
	fs.BoolVarP(&cfg.AutoStart, "auto-start", "a", cfg.AutoStart, "Start a call without the interactive menu")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(usage, "Usage of tabcall:\n")
		fs.PrintDefaults()
		if desc, err := cleanenv.GetDescription(&cfg, nil); err == nil {
			fmt.Fprintf(usage, "\n%s\n", desc)
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("invalid mode %q: must be hub, peer or demo", c.Mode)
	}
	if c.Mode != ModeDemo && c.HubAddr == "" {
		return errors.New("missing hub address")
	}
	if c.Channel == "" {
		return errors.New("missing channel name")
	}
	if c.AnswerTimeout < 0 {
		return fmt.Errorf("invalid answer timeout %s", c.AnswerTimeout)
	}
	return nil
}
