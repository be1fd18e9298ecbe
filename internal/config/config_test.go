package config

import (
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, io.Discard)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != "" {
		t.Errorf("Mode: got %q, want empty", cfg.Mode)
	}
	if cfg.HubAddr != "127.0.0.1:8787" {
		t.Errorf("HubAddr: got %q", cfg.HubAddr)
	}
	if cfg.Channel != "webrtc" {
		t.Errorf("Channel: got %q", cfg.Channel)
	}
	wantSTUN := []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}
	if !reflect.DeepEqual(cfg.STUNServers, wantSTUN) {
		t.Errorf("STUNServers: got %v, want %v", cfg.STUNServers, wantSTUN)
	}
	if cfg.AnswerTimeout != 0 {
		t.Errorf("AnswerTimeout: got %s, want 0", cfg.AnswerTimeout)
	}
	if cfg.HasMediaInput() {
		t.Error("HasMediaInput: got true with no inputs")
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("TABCALL_MODE", "peer")
	t.Setenv("TABCALL_CHANNEL", "room-1")
	t.Setenv("TABCALL_STUN", "stun:a:1,stun:b:2")
	t.Setenv("TABCALL_AUDIO_IN", "127.0.0.1:5004")
	t.Setenv("TABCALL_ANSWER_TIMEOUT", "15s")
	t.Setenv("TABCALL_AUTO_START", "true")

	cfg, err := Load(nil, io.Discard)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != ModePeer {
		t.Errorf("Mode: got %q, want %q", cfg.Mode, ModePeer)
	}
	if cfg.Channel != "room-1" {
		t.Errorf("Channel: got %q", cfg.Channel)
	}
	if !reflect.DeepEqual(cfg.STUNServers, []string{"stun:a:1", "stun:b:2"}) {
		t.Errorf("STUNServers: got %v", cfg.STUNServers)
	}
	if cfg.AnswerTimeout != 15*time.Second {
		t.Errorf("AnswerTimeout: got %s", cfg.AnswerTimeout)
	}
	if !cfg.AutoStart || !cfg.HasMediaInput() {
		t.Errorf("AutoStart/HasMediaInput: got %v/%v", cfg.AutoStart, cfg.HasMediaInput())
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("TABCALL_MODE", "peer")
	t.Setenv("TABCALL_HUB_ADDR", "127.0.0.1:1111")

	cfg, err := Load([]string{"--mode", "hub", "-H", "127.0.0.1:2222", "--answer-timeout", "3s", "--debug"}, io.Discard)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != ModeHub {
		t.Errorf("Mode: got %q, want %q", cfg.Mode, ModeHub)
	}
	if cfg.HubAddr != "127.0.0.1:2222" {
		t.Errorf("HubAddr: got %q", cfg.HubAddr)
	}
	if cfg.AnswerTimeout != 3*time.Second || !cfg.Debug {
		t.Errorf("AnswerTimeout/Debug: got %s/%v", cfg.AnswerTimeout, cfg.Debug)
	}
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown mode", []string{"--mode", "relay"}},
		{"empty hub", []string{"--mode", "peer", "--hub", ""}},
		{"empty channel", []string{"--channel", ""}},
		{"negative timeout", []string{"--answer-timeout", "-1s"}},
		{"unknown flag", []string{"--nope"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(tc.args, io.Discard); err == nil {
				t.Errorf("Load(%v) succeeded, want error", tc.args)
			}
		})
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := Load([]string{"--help"}, io.Discard)
	if !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("Load(--help): got %v, want pflag.ErrHelp", err)
	}
}

func TestDemoNeedsNoHub(t *testing.T) {
	if _, err := Load([]string{"--mode", "demo", "--hub", ""}, io.Discard); err != nil {
		t.Errorf("Load failed: %v", err)
	}
}
