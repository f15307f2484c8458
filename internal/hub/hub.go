// Package hub is the targeted pub/sub transport: every authenticated
// websocket session joins rooms derived from its own identity, and events
// are emitted to rooms only. There is no broadcast path.
package hub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "consulta_hub_sessions",
		Help: "Currently connected websocket sessions.",
	})
	sessionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consulta_hub_sends_dropped_total",
		Help: "Emissions dropped because a session buffer was full or closing.",
	})
)

// Envelope is the wire frame sent to clients.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TypeNotification is the envelope type carrying a notify.Event.
const TypeNotification = "notification"

// Hub tracks room membership. Join and Leave race freely from many
// session goroutines.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Session]struct{}
	logger *observability.Logger
}

func New(logger *observability.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Session]struct{}),
		logger: logger,
	}
}

// RoomsForIdentity lists the rooms a connecting session joins: its user id,
// its email (lowercased), and its role.
func RoomsForIdentity(id notify.Identity) []string {
	rooms := make([]string, 0, 3)
	if id.UserID != "" {
		rooms = append(rooms, "user:"+id.UserID)
	}
	if id.Email != "" {
		rooms = append(rooms, "email:"+strings.ToLower(id.Email))
	}
	if id.Role != "" {
		rooms = append(rooms, "role:"+string(id.Role))
	}
	return rooms
}

// RoomsForEvent resolves an event's targeting fields to the rooms it should
// reach. An event with no targeting fields resolves to nothing.
func RoomsForEvent(e *notify.Event) []string {
	rooms := make([]string, 0, 3)
	if e.TargetUserID != "" {
		rooms = append(rooms, "user:"+e.TargetUserID)
	}
	if e.TargetEmail != "" {
		rooms = append(rooms, "email:"+strings.ToLower(e.TargetEmail))
	}
	if e.TargetRole != "" {
		rooms = append(rooms, "role:"+string(e.TargetRole))
	}
	return rooms
}

func (h *Hub) join(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range s.rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Session]struct{})
			h.rooms[room] = members
		}
		members[s] = struct{}{}
	}
	connectedSessions.Inc()
}

func (h *Hub) leave(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range s.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	connectedSessions.Dec()
}

// EmitToRooms writes the payload to every distinct session in the given
// rooms, at most once per session even when rooms overlap. Sends never
// block: a slow or closing session drops the frame silently.
func (h *Hub) EmitToRooms(rooms []string, payload []byte) int {
	h.mu.RLock()
	targets := make(map[*Session]struct{})
	for _, room := range rooms {
		for s := range h.rooms[room] {
			targets[s] = struct{}{}
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for s := range targets {
		if s.trySend(payload) {
			delivered++
		} else {
			sessionsDropped.Inc()
		}
	}
	return delivered
}

// Name implements notify.Driver.
func (h *Hub) Name() string { return "websocket" }

// Deliver implements notify.Driver: wrap the event in an envelope and emit
// to its target rooms. Zero reachable sessions is not an error; the
// recipient is simply offline and recovery comes from durable booking
// state, not event replay.
func (h *Hub) Deliver(ctx context.Context, e *notify.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Type: TypeNotification, Data: data})
	if err != nil {
		return err
	}

	rooms := RoomsForEvent(e)
	n := h.EmitToRooms(rooms, frame)
	h.logger.Debug("event emitted", "action", e.Action, "booking_id", e.BookingID, "rooms", rooms, "sessions", n)
	return nil
}
