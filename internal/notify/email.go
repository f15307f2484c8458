package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// EmailDriver mails reminder events via Resend. A reminder that arrives
// while the recipient's tab is closed is lost at the transport layer, so
// reminders also go out by mail; lifecycle events stay push-only.
type EmailDriver struct {
	client    *resend.Client
	fromEmail string
}

func NewEmailDriver(apiKey, fromEmail string) *EmailDriver {
	if fromEmail == "" {
		fromEmail = "reminders@consulta.app"
	}
	return &EmailDriver{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
	}
}

func (d *EmailDriver) Name() string { return "email" }

func (d *EmailDriver) Deliver(ctx context.Context, e *Event) error {
	if !e.IsReminder() {
		return nil
	}
	if e.TargetEmail == "" {
		// Id-only targeting; the websocket driver covers it.
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    d.fromEmail,
		To:      []string{e.TargetEmail},
		Subject: Title(e.Action),
		Text:    ComposeMessage(e),
	}
	if _, err := d.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}
	return nil
}
