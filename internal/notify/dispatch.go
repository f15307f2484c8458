package notify

import (
	"context"
	"fmt"

	"github.com/kobbyadu/consulta/pkg/observability"
)

// Driver delivers one event over a single channel (websocket rooms, email).
// Delivery is best-effort and at-most-once; drivers never retry.
type Driver interface {
	Name() string
	Deliver(ctx context.Context, e *Event) error
}

// Dispatcher fans one event out to every registered driver. A failing
// driver is logged and isolated; it never blocks the others.
type Dispatcher struct {
	drivers []Driver
	logger  *observability.Logger
}

func NewDispatcher(logger *observability.Logger, drivers ...Driver) *Dispatcher {
	return &Dispatcher{drivers: drivers, logger: logger}
}

func (d *Dispatcher) Register(driver Driver) {
	d.drivers = append(d.drivers, driver)
}

// Dispatch validates and fans out. Untargeted events are refused here so a
// buggy emitter can never turn into a broadcast.
func (d *Dispatcher) Dispatch(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("refusing to dispatch event: %w", err)
	}
	if !Targeted(e) {
		return fmt.Errorf("refusing to dispatch untargeted event for booking %s", e.BookingID)
	}

	for _, drv := range d.drivers {
		if err := drv.Deliver(ctx, e); err != nil {
			EventsDispatched.WithLabelValues(drv.Name(), "error").Inc()
			d.logger.Warn("driver delivery failed", "driver", drv.Name(), "booking_id", e.BookingID, "action", e.Action, "error", err)
			continue
		}
		EventsDispatched.WithLabelValues(drv.Name(), "ok").Inc()
	}
	return nil
}
