package notify

import "strings"

// Identity is the authenticated principal a client connection belongs to.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role,omitempty"`
}

// Targeted reports whether the event names at least one recipient. An
// untargeted event must never be delivered; broadcast is not a thing here.
func Targeted(e *Event) bool {
	return e.TargetUserID != "" || e.TargetEmail != "" || e.TargetRole != ""
}

// MatchesIdentity is the single targeting predicate: an event reaches an
// identity when any populated targeting field matches. Emails compare
// case-insensitively. An event with no targeting fields matches nobody.
func MatchesIdentity(e *Event, id Identity) bool {
	if e.TargetUserID != "" && e.TargetUserID == id.UserID {
		return true
	}
	if e.TargetEmail != "" && id.Email != "" && strings.EqualFold(e.TargetEmail, id.Email) {
		return true
	}
	if e.TargetRole != "" && e.TargetRole == id.Role {
		return true
	}
	return false
}
