// Package events owns the push-channel subscription to the agent backend.
// A Channel holds at most one open binding at a time: binding to a new
// conversation id closes the previous binding first. Decoded events are
// dispatched to a Handler from a single read loop per binding, so handlers
// see a serialized event stream.
package events

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentmux/agentmux/internal/logging"
)

// State is the lifecycle state of the channel binding.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateClosed       State = "closed"
)

// Handler consumes decoded push-channel events. Keepalives are consumed by
// the channel itself and never reach the handler.
type Handler interface {
	HandleEvent(ev Event)
}

// Config tunes the channel transport.
type Config struct {
	// ServerURL is the backend base URL (http or https); the channel derives
	// the ws/wss event endpoint from it.
	ServerURL string
	Token     string

	ReconnectMaxAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration

	// KeepaliveWindow is the longest the channel may be silent before it is
	// treated as stalled and reconnected. Zero disables the watchdog.
	KeepaliveWindow time.Duration
}

// Channel is a push-channel subscription bound to one conversation id.
type Channel struct {
	cfg     Config
	handler Handler
	dialer  *websocket.Dialer
	log     *logging.Logger

	mu             sync.Mutex
	state          State
	conversationID string
	conn           *websocket.Conn
	gen            uint64 // binding generation, bumped on every rebind/close
}

// NewChannel creates an unbound channel.
func NewChannel(cfg Config, handler Handler, log *logging.Logger) *Channel {
	return &Channel{
		cfg:     cfg,
		handler: handler,
		dialer:  websocket.DefaultDialer,
		log:     log.Sub("events"),
		state:   StateDisconnected,
	}
}

// State returns the current binding state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConversationID returns the id of the current binding, or "" when unbound.
func (c *Channel) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Bind subscribes to the event stream for the given conversation id.
// If a binding for a different id exists it is closed first; binding to the
// current id is a no-op.
func (c *Channel) Bind(conversationID string) error {
	c.mu.Lock()

	if c.conversationID == conversationID && (c.state == StateOpen || c.state == StateConnecting) {
		c.mu.Unlock()
		return nil
	}

	c.closeLocked()
	c.gen++
	gen := c.gen
	c.conversationID = conversationID
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dial(conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// Superseded by another Bind/Close while dialing.
		if conn != nil {
			conn.Close()
		}
		return nil
	}
	if err != nil {
		c.state = StateDisconnected
		return fmt.Errorf("binding event channel to %s: %w", conversationID, err)
	}

	c.conn = conn
	c.state = StateOpen
	c.log.Info().Str("conversationId", conversationID).Msg("event channel open")

	go c.readLoop(gen, conn, conversationID)
	return nil
}

// Close tears down the current binding. Idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed && c.conn == nil {
		return
	}
	c.closeLocked()
	c.state = StateClosed
}

func (c *Channel) closeLocked() {
	c.gen++
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
		c.conn = nil
		c.log.Debug().Str("conversationId", c.conversationID).Msg("event channel closed")
	}
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Channel) dial(conversationID string) (*websocket.Conn, error) {
	endpoint, err := c.eventsURL(conversationID)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, _, err := c.dialer.Dial(endpoint, header)
	return conn, err
}

func (c *Channel) eventsURL(conversationID string) (string, error) {
	u, err := url.Parse(c.cfg.ServerURL)
	if err != nil {
		return "", fmt.Errorf("parsing server url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/events/" + conversationID
	return u.String(), nil
}

// readLoop drains one binding's connection. Events belonging to a superseded
// binding are dropped, never dispatched.
func (c *Channel) readLoop(gen uint64, conn *websocket.Conn, conversationID string) {
	for {
		if c.cfg.KeepaliveWindow > 0 {
			conn.SetReadDeadline(time.Now().Add(c.cfg.KeepaliveWindow))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if !c.current(gen) {
				return
			}
			if isTimeout(err) {
				c.log.Warn().
					Str("conversationId", conversationID).
					Dur("window", c.cfg.KeepaliveWindow).
					Msg("event channel stalled, no keepalive within window")
			} else {
				c.log.Warn().Err(err).
					Str("conversationId", conversationID).
					Msg("event channel transport error")
			}

			next, ok := c.reconnect(gen, conversationID)
			if !ok {
				return
			}
			conn = next
			continue
		}

		if !c.current(gen) {
			return
		}

		ev, derr := Decode(data)
		if derr != nil {
			// Malformed payloads are dropped; the channel stays open.
			c.log.Warn().Err(derr).Str("conversationId", conversationID).Msg("dropping malformed event")
			continue
		}
		if ev.Type == TypeKeepalive {
			continue
		}
		c.handler.HandleEvent(ev)
	}
}

// reconnect re-dials the current binding with bounded exponential backoff.
// Returns the new connection, or false once the binding is superseded or
// attempts are exhausted.
func (c *Channel) reconnect(gen uint64, conversationID string) (*websocket.Conn, bool) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil, false
	}
	c.conn = nil
	c.state = StateConnecting
	c.mu.Unlock()

	delay := c.cfg.ReconnectBaseDelay
	for attempt := 1; attempt <= c.cfg.ReconnectMaxAttempts; attempt++ {
		time.Sleep(delay)
		delay *= 2
		if c.cfg.ReconnectMaxDelay > 0 && delay > c.cfg.ReconnectMaxDelay {
			delay = c.cfg.ReconnectMaxDelay
		}

		if !c.current(gen) {
			return nil, false
		}

		conn, err := c.dial(conversationID)
		if err != nil {
			c.log.Warn().Err(err).
				Str("conversationId", conversationID).
				Int("attempt", attempt).
				Msg("event channel reconnect failed")
			continue
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			conn.Close()
			return nil, false
		}
		c.conn = conn
		c.state = StateOpen
		c.mu.Unlock()

		c.log.Info().
			Str("conversationId", conversationID).
			Int("attempt", attempt).
			Msg("event channel reconnected")
		return conn, true
	}

	c.mu.Lock()
	if c.gen == gen {
		c.conn = nil
		c.state = StateClosed
		c.log.Error().
			Str("conversationId", conversationID).
			Int("attempts", c.cfg.ReconnectMaxAttempts).
			Msg("event channel gave up reconnecting")
	}
	c.mu.Unlock()
	return nil, false
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
