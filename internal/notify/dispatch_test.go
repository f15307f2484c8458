package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/kobbyadu/consulta/pkg/observability"
)

type stubDriver struct {
	name      string
	err       error
	delivered []Event
}

func (d *stubDriver) Name() string { return d.name }

func (d *stubDriver) Deliver(ctx context.Context, e *Event) error {
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, *e)
	return nil
}

func TestDispatcherRefusesInvalidEvents(t *testing.T) {
	drv := &stubDriver{name: "ws"}
	d := NewDispatcher(observability.NewTestLogger(), drv)

	tests := []struct {
		name  string
		event Event
	}{
		{"No Action", Event{BookingID: "bk_1", TargetUserID: "u_1"}},
		{"No Booking", Event{Action: ActionConfirm, TargetUserID: "u_1"}},
		{"Untargeted", Event{Action: ActionConfirm, BookingID: "bk_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Dispatch(context.Background(), &tt.event); err == nil {
				t.Error("Expected dispatch to refuse the event")
			}
			if len(drv.delivered) != 0 {
				t.Errorf("Expected no deliveries, got %d", len(drv.delivered))
			}
		})
	}
}

func TestDispatcherIsolatesFailingDriver(t *testing.T) {
	broken := &stubDriver{name: "email", err: errors.New("smtp down")}
	healthy := &stubDriver{name: "ws"}
	d := NewDispatcher(observability.NewTestLogger(), broken, healthy)

	e := Event{Action: ActionConfirm, BookingID: "bk_1", TargetUserID: "u_1"}
	if err := d.Dispatch(context.Background(), &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(healthy.delivered) != 1 {
		t.Errorf("Expected healthy driver to deliver despite the broken one, got %d", len(healthy.delivered))
	}
}
