package hub

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/observability"
)

func TestRoomsForIdentity(t *testing.T) {
	tests := []struct {
		name     string
		identity notify.Identity
		want     []string
	}{
		{
			name:     "All Fields",
			identity: notify.Identity{UserID: "u_1", Email: "Ama@KNUST.edu.gh", Role: notify.RoleStudent},
			want:     []string{"user:u_1", "email:ama@knust.edu.gh", "role:student"},
		},
		{
			name:     "User Only",
			identity: notify.Identity{UserID: "u_1"},
			want:     []string{"user:u_1"},
		},
		{
			name:     "Empty Identity",
			identity: notify.Identity{},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoomsForIdentity(tt.identity)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected rooms %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRoomsForEvent(t *testing.T) {
	e := notify.Event{TargetUserID: "u_1", TargetEmail: "AMA@knust.edu.gh"}
	got := RoomsForEvent(&e)
	want := []string{"user:u_1", "email:ama@knust.edu.gh"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected rooms %v, got %v", want, got)
	}

	if rooms := RoomsForEvent(&notify.Event{}); len(rooms) != 0 {
		t.Errorf("Expected untargeted event to resolve to no rooms, got %v", rooms)
	}
}

// joinedSession builds a session with no network connection; trySend only
// touches channels, so the pumps are not needed.
func joinedSession(h *Hub, id notify.Identity) *Session {
	s := newSession(h, nil, id)
	h.join(s)
	return s
}

func TestEmitToRoomsAtMostOncePerSession(t *testing.T) {
	h := New(observability.NewTestLogger())
	// This session is in all three rooms the event targets.
	s := joinedSession(h, notify.Identity{UserID: "u_1", Email: "ama@knust.edu.gh", Role: notify.RoleStudent})

	rooms := []string{"user:u_1", "email:ama@knust.edu.gh", "role:student"}
	delivered := h.EmitToRooms(rooms, []byte("frame"))
	if delivered != 1 {
		t.Errorf("Expected 1 delivery across overlapping rooms, got %d", delivered)
	}
	if got := len(s.send); got != 1 {
		t.Errorf("Expected exactly 1 queued frame, got %d", got)
	}
}

func TestEmitToRoomsTargetsOnlyMembers(t *testing.T) {
	h := New(observability.NewTestLogger())
	target := joinedSession(h, notify.Identity{UserID: "u_1"})
	other := joinedSession(h, notify.Identity{UserID: "u_2"})

	h.EmitToRooms([]string{"user:u_1"}, []byte("frame"))
	if len(target.send) != 1 {
		t.Error("Expected the targeted session to receive the frame")
	}
	if len(other.send) != 0 {
		t.Error("Expected the other session to receive nothing")
	}
}

func TestEmitToRoomsDropsWhenBufferFull(t *testing.T) {
	h := New(observability.NewTestLogger())
	s := joinedSession(h, notify.Identity{UserID: "u_1"})

	for i := 0; i < sendBufferSize; i++ {
		if !s.trySend([]byte("fill")) {
			t.Fatal("Expected buffer to accept frames up to capacity")
		}
	}

	delivered := h.EmitToRooms([]string{"user:u_1"}, []byte("overflow"))
	if delivered != 0 {
		t.Errorf("Expected overflow frame to be dropped, got %d deliveries", delivered)
	}
}

func TestEmitToRoomsSkipsClosedSession(t *testing.T) {
	h := New(observability.NewTestLogger())
	s := joinedSession(h, notify.Identity{UserID: "u_1"})

	s.closeOnce.Do(func() {
		close(s.closed)
		h.leave(s)
	})

	delivered := h.EmitToRooms([]string{"user:u_1"}, []byte("frame"))
	if delivered != 0 {
		t.Errorf("Expected no deliveries to a closed session, got %d", delivered)
	}
}

func TestLeaveRemovesEmptyRooms(t *testing.T) {
	h := New(observability.NewTestLogger())
	s := joinedSession(h, notify.Identity{UserID: "u_1", Role: notify.RoleStudent})

	h.leave(s)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rooms) != 0 {
		t.Errorf("Expected empty room maps to be removed, got %v", h.rooms)
	}
}

func TestDeliverWrapsEventInEnvelope(t *testing.T) {
	h := New(observability.NewTestLogger())
	s := joinedSession(h, notify.Identity{UserID: "u_1"})

	e := notify.Event{Action: notify.ActionConfirm, BookingID: "bk_1", TargetUserID: "u_1"}
	if err := h.Deliver(context.Background(), &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame := <-s.send
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if env.Type != TypeNotification {
		t.Errorf("Expected envelope type %q, got %q", TypeNotification, env.Type)
	}
	var decoded notify.Event
	if err := json.Unmarshal(env.Data, &decoded); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if decoded.BookingID != "bk_1" || decoded.Action != notify.ActionConfirm {
		t.Errorf("Unexpected event payload: %+v", decoded)
	}
}

func TestDeliverToOfflineRecipientIsNotAnError(t *testing.T) {
	h := New(observability.NewTestLogger())
	e := notify.Event{Action: notify.ActionConfirm, BookingID: "bk_1", TargetUserID: "u_gone"}
	if err := h.Deliver(context.Background(), &e); err != nil {
		t.Errorf("Expected nil error for offline recipient, got %v", err)
	}
}
