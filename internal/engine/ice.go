package engine

import "github.com/pion/webrtc/v4"

// DefaultSTUNServers are used for ICE candidate gathering when none are
// configured. No TURN: both participants share one device.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// ICEConfig holds the ICE servers handed to every new PeerConnection.
// An empty config gathers host candidates only.
type ICEConfig struct {
	STUNServers []string
}

// configuration converts c into a pion Configuration.
func (c ICEConfig) configuration() webrtc.Configuration {
	if len(c.STUNServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: c.STUNServers},
		},
	}
}
