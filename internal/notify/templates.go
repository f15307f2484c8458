package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// Fallbacks for optional display fields. Rendering never fails on a sparse
// event; it degrades to neutral text.
const (
	fallbackTeacher = "Unknown teacher"
	fallbackVenue   = "TBA"
	fallbackTime    = "a scheduled time"
)

var messageTemplates = map[Action]string{
	ActionCreate:  `New consultation request with {{.Teacher}} at {{.When}} ({{.Venue}}).`,
	ActionConfirm: `Your consultation with {{.Teacher}} on {{.When}} is confirmed. Venue: {{.Venue}}.`,
	ActionCancel:  `Your consultation with {{.Teacher}} on {{.When}} has been cancelled.`,
}

var titles = map[Action]string{
	ActionCreate:  "Consultation requested",
	ActionConfirm: "Consultation confirmed",
	ActionCancel:  "Consultation cancelled",
}

const reminderTemplate = `Reminder: consultation with {{.Teacher}} in {{.Lead}} ({{.When}}, {{.Venue}}).`

type templateData struct {
	Teacher  string
	Students string
	When     string
	Venue    string
	Lead     string
}

// Title returns the short heading for an action.
func Title(a Action) string {
	if t, ok := titles[a]; ok {
		return t
	}
	if lead, ok := LeadFromAction(a); ok {
		return fmt.Sprintf("Upcoming consultation in %s", humanLead(lead))
	}
	return "Notification"
}

// ComposeMessage renders the human-readable message for an event. A
// pre-composed override on the event wins. Unknown actions fall back to a
// generic line rather than erroring.
func ComposeMessage(e *Event) string {
	if e.Message != "" {
		return e.Message
	}

	data := templateData{
		Teacher:  e.TeacherName,
		Students: e.StudentNames,
		When:     fallbackTime,
		Venue:    e.Venue,
	}
	if data.Teacher == "" {
		data.Teacher = fallbackTeacher
	}
	if data.Venue == "" {
		data.Venue = fallbackVenue
	}
	if t, ok := e.ScheduleTime(); ok {
		data.When = t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	}

	text := messageTemplates[e.Action]
	if text == "" {
		if lead, ok := LeadFromAction(e.Action); ok {
			data.Lead = humanLead(lead)
			text = reminderTemplate
		} else {
			return fmt.Sprintf("Update for booking %s: %s", e.BookingID, e.Action)
		}
	}

	tmpl, err := template.New(string(e.Action)).Parse(text)
	if err != nil {
		return fmt.Sprintf("Update for booking %s: %s", e.BookingID, e.Action)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Update for booking %s: %s", e.BookingID, e.Action)
	}
	return buf.String()
}

func humanLead(lead time.Duration) string {
	switch {
	case lead >= 48*time.Hour && lead%(24*time.Hour) == 0:
		return fmt.Sprintf("%d days", int(lead.Hours())/24)
	case lead == 24*time.Hour:
		return "24 hours"
	case lead == time.Hour:
		return "1 hour"
	case lead >= time.Hour:
		return fmt.Sprintf("%d hours", int(lead.Hours()))
	default:
		return fmt.Sprintf("%d minutes", int(lead.Minutes()))
	}
}
