package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kobbyadu/consulta/pkg/observability"
)

// ErrRetriesExhausted is returned by Run when the reconnect attempt cap is
// hit. The caller is expected to fall back to polling the REST surface.
var ErrRetriesExhausted = errors.New("websocket reconnect attempts exhausted")

// ClientConfig tunes the reconnect behavior.
type ClientConfig struct {
	URL            string // ws:// or wss:// endpoint
	Token          string
	InitialBackoff time.Duration // default 1s
	MaxBackoff     time.Duration // default 30s
	MaxAttempts    int           // consecutive failed dials before giving up; default 5
}

// Client maintains a websocket to the hub and fans inbound frames out to
// typed subscribers. Handler registration survives reconnects; rejoining
// rooms is implicit in the authenticated redial.
type Client struct {
	cfg    ClientConfig
	dialer *websocket.Dialer
	logger *observability.Logger

	mu       sync.Mutex
	handlers map[string]map[int]func(json.RawMessage)
	nextID   int
}

func NewClient(cfg ClientConfig, logger *observability.Logger) *Client {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Client{
		cfg:      cfg,
		dialer:   websocket.DefaultDialer,
		logger:   logger,
		handlers: make(map[string]map[int]func(json.RawMessage)),
	}
}

// Subscribe registers a handler for an envelope type and returns its
// unsubscribe function. No global listener state: dropping the handle is
// all it takes, so reconnects cannot leak registrations.
func (c *Client) Subscribe(eventType string, handler func(json.RawMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	if c.handlers[eventType] == nil {
		c.handlers[eventType] = make(map[int]func(json.RawMessage))
	}
	c.handlers[eventType][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[eventType], id)
	}
}

// Run connects and reads until the context ends or the attempt cap is hit.
// Each successful connection resets the backoff and the attempt counter.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.InitialBackoff
	attempts := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := c.dial(ctx)
		if err != nil {
			attempts++
			if attempts >= c.cfg.MaxAttempts {
				c.logger.Warn("giving up on realtime connection", "attempts", attempts)
				return ErrRetriesExhausted
			}
			c.logger.Info("connect failed, backing off", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
			continue
		}

		attempts = 0
		backoff = c.cfg.InitialBackoff
		c.logger.Info("realtime connection established")

		err = c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Info("realtime connection lost, reconnecting", "error", err)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.Token)
	conn, resp, err := c.dialer.DialContext(dialCtx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			c.logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	c.mu.Lock()
	handlers := make([]func(json.RawMessage), 0, len(c.handlers[env.Type]))
	for _, h := range c.handlers[env.Type] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(env.Data)
	}
}
