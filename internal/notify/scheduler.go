package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kobbyadu/consulta/internal/booking"
	"github.com/kobbyadu/consulta/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Emitter is where the scheduler hands finished reminder events. Satisfied
// by *Dispatcher.
type Emitter interface {
	Dispatch(ctx context.Context, e *Event) error
}

// SchedulerConfig carries the tunables. Lead times are configuration, not
// constants; any sorted-or-not list of positive durations works.
type SchedulerConfig struct {
	// Leads are the intervals before a session start at which a reminder
	// fires. Default: 24h, 1h, 15m.
	Leads []time.Duration
	// Interval between scans. Default: 60s.
	Interval time.Duration
	// Tolerance is the width of each firing window: a reminder for lead L
	// fires while L-Tolerance < (schedule-now) <= L. Must be larger than
	// Interval or windows can fall between ticks. Default: 2*Interval.
	Tolerance time.Duration
}

func (c *SchedulerConfig) applyDefaults() {
	if len(c.Leads) == 0 {
		c.Leads = []time.Duration{24 * time.Hour, time.Hour, 15 * time.Minute}
	}
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 2 * c.Interval
	}
}

// Scheduler periodically scans upcoming confirmed bookings and emits at
// most one reminder per (booking, lead-time) pair.
//
// A window that passes while the scheduler is down is permanently skipped,
// never back-filled: a reminder delivered long after its window is noise,
// and the appointment list remains the durable source of truth. This is a
// deliberate trade-off, not a delivery bug.
type Scheduler struct {
	bookings booking.Repository
	sent     SentStore
	emitter  Emitter
	cfg      SchedulerConfig
	logger   *observability.Logger

	now     func() time.Time
	ticking atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewScheduler(bookings booking.Repository, sent SentStore, emitter Emitter, cfg SchedulerConfig, logger *observability.Logger) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		bookings: bookings,
		sent:     sent,
		emitter:  emitter,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Run blocks, scanning every Interval until Stop is called or the context
// ends. Ticks run on this goroutine only, so they cannot overlap; the
// atomic guard is belt-and-braces for callers driving Tick directly.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("reminder scheduler started",
		"interval", s.cfg.Interval, "tolerance", s.cfg.Tolerance, "leads", s.cfg.Leads)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop halts a running scheduler. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Tick performs one scan. If a previous tick is still running the scan is
// skipped entirely rather than run in parallel, which would race on the
// sent markers.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.logger.Warn("previous scheduler tick still running, skipping")
		return
	}
	defer s.ticking.Store(false)

	timer := prometheus.NewTimer(SchedulerTickDuration)
	defer timer.ObserveDuration()

	now := s.now()
	maxLead := s.cfg.Leads[0]
	for _, l := range s.cfg.Leads {
		if l > maxLead {
			maxLead = l
		}
	}

	upcoming, err := s.bookings.ListConfirmedInWindow(ctx, now, now.Add(maxLead+s.cfg.Tolerance))
	if err != nil {
		s.logger.Error("failed to list upcoming bookings", "error", err)
		return
	}

	for _, b := range upcoming {
		if err := s.evaluate(ctx, b, now); err != nil {
			// One broken booking must not starve the rest of the tick.
			s.logger.Error("failed to evaluate booking", "booking_id", b.ID, "error", err)
		}
	}
}

func (s *Scheduler) evaluate(ctx context.Context, b *booking.Booking, now time.Time) error {
	remaining := b.Schedule.Sub(now)
	if remaining <= 0 {
		return nil
	}

	var due []time.Duration
	for _, lead := range s.cfg.Leads {
		switch {
		case remaining > lead:
			// Too early; a later tick will catch it.
		case remaining > lead-s.cfg.Tolerance:
			due = append(due, lead)
		default:
			// Window passed without an emission: permanently missed. Claim
			// the marker so the pair is counted once and never revisited.
			if created, err := s.sent.MarkSent(ctx, b.ID, lead); err == nil && created {
				RemindersSkipped.WithLabelValues("missed").Inc()
				s.logger.Warn("reminder window missed, not back-filling",
					"booking_id", b.ID, "lead", lead)
			}
		}
	}
	if len(due) == 0 {
		return nil
	}

	// The window query only returns confirmed bookings, but the status can
	// flip between the query and now. Re-check once before emitting.
	status, err := s.bookings.GetStatus(ctx, b.ID)
	if err != nil {
		return err
	}
	if status != booking.StatusConfirmed {
		RemindersSkipped.WithLabelValues("cancelled").Inc()
		return nil
	}

	for _, lead := range due {
		created, err := s.sent.MarkSent(ctx, b.ID, lead)
		if err != nil {
			return err
		}
		if !created {
			RemindersSkipped.WithLabelValues("sent").Inc()
			continue
		}
		s.emitReminder(ctx, b, lead)
	}
	return nil
}

// emitReminder targets the teacher and every student individually. A
// failure for one participant is logged and does not stop the others; the
// sent marker is already in place, so there is no second attempt.
func (s *Scheduler) emitReminder(ctx context.Context, b *booking.Booking, lead time.Duration) {
	action := ReminderAction(lead)
	base := Event{
		Action:       action,
		BookingID:    b.ID,
		TeacherName:  b.TeacherName,
		StudentNames: b.StudentNames(),
		Schedule:     b.Schedule.UTC().Format(time.RFC3339),
		Venue:        b.Venue,
		EmittedAt:    s.now().UTC(),
	}

	recipients := make([]Event, 0, len(b.Students)+1)
	teacher := base
	teacher.TargetUserID = b.TeacherID
	teacher.TargetEmail = b.TeacherEmail
	recipients = append(recipients, teacher)
	for _, st := range b.Students {
		ev := base
		ev.TargetUserID = st.ID
		ev.TargetEmail = st.Email
		recipients = append(recipients, ev)
	}

	for i := range recipients {
		if err := s.emitter.Dispatch(ctx, &recipients[i]); err != nil {
			s.logger.Error("failed to dispatch reminder",
				"booking_id", b.ID, "lead", lead, "target", recipients[i].TargetUserID, "error", err)
		}
	}
	RemindersEmitted.WithLabelValues(formatLead(lead)).Inc()
	s.logger.Info("reminder emitted", "booking_id", b.ID, "lead", lead, "recipients", len(recipients))
}
