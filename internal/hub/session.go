package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kobbyadu/consulta/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// Session is one connected client tab. Outbound frames go through a
// buffered channel drained by the write pump; the hub never touches the
// connection directly.
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	identity notify.Identity
	rooms    []string

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(h *Hub, conn *websocket.Conn, identity notify.Identity) *Session {
	return &Session{
		hub:      h,
		conn:     conn,
		identity: identity,
		rooms:    RoomsForIdentity(identity),
		send:     make(chan []byte, sendBufferSize),
		closed:   make(chan struct{}),
	}
}

// trySend queues a frame without blocking. False means the frame was
// dropped because the buffer is full or the session is closing; there is
// no retry.
func (s *Session) trySend(payload []byte) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// readPump consumes inbound frames until the peer goes away. Clients do
// not send application data upstream; the read loop exists to process
// control frames and detect disconnects.
func (s *Session) readPump() {
	defer s.teardown()

	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.closed:
			s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.hub.leave(s)
	})
	s.conn.Close()
}
