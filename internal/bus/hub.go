package bus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/tabcall/internal/util"
)

// DefaultChannel is the channel name used when a client does not pick one.
const DefaultChannel = "webrtc"

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub is a local WebSocket relay that gives processes on the same device a
// shared broadcast channel. Each text frame received from a client is sent
// to every client on the same channel, including the one that sent it.
type Hub struct {
	listener net.Listener
	server   *http.Server

	mu       sync.Mutex
	channels map[string]map[*hubClient]struct{}
}

// hubClient serializes writes to one WebSocket connection.
type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates a relay with no listener yet.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[*hubClient]struct{}),
	}
}

// Start begins listening on addr (use port 0 for a random port) and returns
// the assigned port number.
func (h *Hub) Start(addr string) (int, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to start signaling hub: %w", err)
	}
	h.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.LogError("signaling hub stopped: %v", err)
		}
	}()

	return port, nil
}

// Addr returns the listening address, or nil before Start.
func (h *Hub) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = DefaultChannel
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &hubClient{conn: conn}
	h.join(channel, client)
	util.LogDebug("hub: client %s joined channel %q", conn.RemoteAddr(), channel)

	defer func() {
		h.leave(channel, client)
		conn.Close()
		util.LogDebug("hub: client %s left channel %q", conn.RemoteAddr(), channel)
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		h.broadcast(channel, data)
	}
}

func (h *Hub) join(channel string, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[*hubClient]struct{})
		h.channels[channel] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) leave(channel string, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.channels[channel]
	delete(members, c)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

// broadcast relays data to every member of channel. A member whose write
// fails is closed; its read loop then removes it.
func (h *Hub) broadcast(channel string, data []byte) {
	h.mu.Lock()
	members := make([]*hubClient, 0, len(h.channels[channel]))
	for c := range h.channels[channel] {
		members = append(members, c)
	}
	h.mu.Unlock()

	for _, c := range members {
		if err := c.write(data); err != nil {
			util.LogWarning("hub: dropping client %s: %v", c.conn.RemoteAddr(), err)
			c.conn.Close()
		}
	}
}

// Close shuts down the listener and every client connection.
func (h *Hub) Close() error {
	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := h.server.Shutdown(ctx)

	h.mu.Lock()
	for _, members := range h.channels {
		for c := range members {
			c.conn.Close()
		}
	}
	h.mu.Unlock()

	return err
}

// ChannelURL builds the WebSocket URL of channel on a hub listening at addr
// (host:port).
func ChannelURL(addr, channel string) string {
	if channel == "" {
		channel = DefaultChannel
	}
	u := url.URL{
		Scheme:   "ws",
		Host:     addr,
		Path:     "/ws",
		RawQuery: url.Values{"channel": {channel}}.Encode(),
	}
	return u.String()
}
