package bus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/tabcall/internal/signaling"
	"github.com/1ureka/tabcall/internal/util"
)

// Compile-time interface check.
var _ Bus = (*Socket)(nil)

// Socket is a Bus backed by one connection to a Hub channel. Published
// messages return through the hub like anyone else's, so local subscribers
// see them only after the round trip.
type Socket struct {
	conn *websocket.Conn
	mu   sync.Mutex // guards writes to conn
	subs fanout

	closeOnce sync.Once
}

// Dial connects to a hub channel URL (see ChannelURL).
func Dial(ctx context.Context, url string) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signaling hub: %w", err)
	}
	return &Socket{conn: conn}, nil
}

// Publish sends msg to the hub. Failures are logged and swallowed.
func (s *Socket) Publish(msg signaling.Message) {
	data, err := signaling.Encode(msg)
	if err != nil {
		util.LogError("bus: dropping unencodable %q message: %v", msg.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		util.LogWarning("bus: %q message lost: %v", msg.Type, err)
	}
}

// Subscribe registers fn for every message read from the hub.
func (s *Socket) Subscribe(fn func(signaling.Message)) func() {
	return s.subs.add(fn)
}

// Run reads frames until the connection fails or ctx is cancelled, and
// delivers each decodable one to the subscribers. Undecodable frames are
// logged and skipped.
func (s *Socket) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("signaling hub read failed: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		if err := s.subs.deliver(data); err != nil {
			util.LogWarning("bus: ignoring frame: %v", err)
		}
	}
}

// Close closes the connection. Safe to call more than once.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.mu.Unlock()
		err = s.conn.Close()
	})
	return err
}
