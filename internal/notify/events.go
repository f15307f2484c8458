package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Action identifies what happened to a booking, or which reminder window
// fired. Reminder actions embed the lead-time bucket so an event is
// self-describing on the wire.
type Action string

const (
	ActionCreate  Action = "create"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"

	// Default reminder buckets. Lead times are configuration; these cover
	// the stock 24h/1h/15m set.
	ActionReminder24h Action = "reminder_24h"
	ActionReminder1h  Action = "reminder_1h"
	ActionReminder15m Action = "reminder_15m"

	reminderPrefix = "reminder_"
)

// Role of a notification recipient.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

var (
	ErrMissingAction    = errors.New("event has no action")
	ErrMissingBookingID = errors.New("event has no bookingID")
)

// Event is the transport payload for one notification emission. It is
// created once, never mutated, and discarded after delivery; durability
// lives client-side in the reconciler's store.
type Event struct {
	Action       Action    `json:"action"`
	BookingID    string    `json:"bookingID"`
	TargetUserID string    `json:"targetUserId,omitempty"`
	TargetEmail  string    `json:"targetEmail,omitempty"`
	TargetRole   Role      `json:"targetRole,omitempty"`
	TeacherName  string    `json:"teacherName,omitempty"`
	StudentNames string    `json:"studentNames,omitempty"` // comma-joined display names
	Schedule     string    `json:"schedule,omitempty"`     // ISO-8601 UTC
	Venue        string    `json:"venue,omitempty"`
	Message      string    `json:"message,omitempty"` // pre-composed override
	EmittedAt    time.Time `json:"emittedAt,omitempty"`
}

// Validate checks the required fields. Optional fields degrade at render
// time instead of failing here.
func (e *Event) Validate() error {
	if e.Action == "" {
		return ErrMissingAction
	}
	if e.BookingID == "" {
		return ErrMissingBookingID
	}
	return nil
}

// IsReminder reports whether the action is a reminder bucket.
func (e *Event) IsReminder() bool {
	return strings.HasPrefix(string(e.Action), reminderPrefix)
}

// DedupKey derives the deterministic identifier used to collapse duplicate
// deliveries. Reminders are unique per (booking, lead-time bucket); the
// action already encodes the bucket. Lifecycle events fold in the emission
// time rounded to the nearest second so a re-created booking still yields a
// fresh notification while a reconnect-storm duplicate does not.
func (e *Event) DedupKey() string {
	if e.IsReminder() {
		return fmt.Sprintf("%s:%s", e.Action, e.BookingID)
	}
	ts := e.EmittedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("%s:%s:%d", e.Action, e.BookingID, ts.Round(time.Second).Unix())
}

// ReminderAction returns the action for a lead time, e.g. 24h -> reminder_24h,
// 15m -> reminder_15m.
func ReminderAction(lead time.Duration) Action {
	return Action(reminderPrefix + formatLead(lead))
}

// LeadFromAction recovers the lead time from a reminder action. Returns
// false for lifecycle actions or unparsable buckets.
func LeadFromAction(a Action) (time.Duration, bool) {
	s, ok := strings.CutPrefix(string(a), reminderPrefix)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// formatLead renders a duration in the compact form used in action names:
// whole hours as "24h", sub-hour as "15m".
func formatLead(lead time.Duration) string {
	if lead >= time.Hour && lead%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(lead.Hours()))
	}
	return fmt.Sprintf("%dm", int(lead.Minutes()))
}

// ScheduleTime parses the event's schedule field. The zero time and false
// are returned when the field is absent or malformed.
func (e *Event) ScheduleTime() (time.Time, bool) {
	if e.Schedule == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, e.Schedule)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
