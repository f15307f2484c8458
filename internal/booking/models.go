package booking

import (
	"time"
)

// Status of a consultation booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Student is a participant on the student side of a booking.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Booking is a scheduled consultation session between a faculty member and
// one or more students. Display fields (names, emails) are carried alongside
// the ids so reminder events can be emitted without re-fetching users.
type Booking struct {
	ID           string    `json:"id"`
	TeacherID    string    `json:"teacher_id"`
	TeacherName  string    `json:"teacher_name"`
	TeacherEmail string    `json:"teacher_email,omitempty"`
	Students     []Student `json:"students"`
	Schedule     time.Time `json:"schedule"` // session start, UTC
	Venue        string    `json:"venue"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentIDs returns the ids of all student participants, in order.
func (b *Booking) StudentIDs() []string {
	ids := make([]string, 0, len(b.Students))
	for _, s := range b.Students {
		ids = append(ids, s.ID)
	}
	return ids
}

// StudentNames returns a comma-joined display string of student names.
func (b *Booking) StudentNames() string {
	names := ""
	for i, s := range b.Students {
		if i > 0 {
			names += ", "
		}
		names += s.Name
	}
	return names
}
