// Package reconciler turns raw notification events into exactly one
// durable, deduplicated, human-readable record per semantic event, and owns
// the client's read/unread list.
package reconciler

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/observability"
)

const defaultSuppressionWindow = 5 * time.Second

// Reconciler processes events for one client identity. All methods are
// safe for concurrent use; event handling, dedup checks and storage writes
// serialize on one lock, mirroring the single event loop a browser tab has.
type Reconciler struct {
	identity notify.Identity
	store    Store
	logger   *observability.Logger
	now      func() time.Time

	window time.Duration

	mu      sync.Mutex
	list    []Notification
	dedup   *dedupCache
	subs    map[int]func(Notification)
	nextSub int
}

// Option tweaks a Reconciler at construction.
type Option func(*Reconciler)

// WithClock injects a fake clock for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithSuppressionWindow overrides the ~5s duplicate-delivery window.
func WithSuppressionWindow(d time.Duration) Option {
	return func(r *Reconciler) { r.window = d }
}

// New builds a reconciler and loads the initial list from the store. The
// store is the source of truth at startup; unparsable content is reset to
// empty with a warning, never surfaced as an error.
func New(identity notify.Identity, store Store, logger *observability.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		identity: identity,
		store:    store,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[int]func(Notification)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.window <= 0 {
		r.window = defaultSuppressionWindow
	}
	r.dedup = newDedupCache(r.window, r.now)

	data, err := store.Load()
	if err != nil {
		r.logger.Warn("failed to load notification storage, starting empty", "error", err)
		r.list = []Notification{}
		return r
	}
	list, err := decodeList(data)
	if err != nil {
		r.logger.Warn("notification storage corrupt, resetting", "error", err)
		r.list = []Notification{}
		if err := store.Clear(); err != nil {
			r.logger.Warn("failed to reset notification storage", "error", err)
		}
		return r
	}
	r.list = list
	return r
}

// HandleRaw decodes a wire payload and runs it through the pipeline. Used
// as the transport subscriber.
func (r *Reconciler) HandleRaw(payload json.RawMessage) {
	var e notify.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		r.logger.Warn("discarding malformed event payload", "error", err)
		return
	}
	r.Handle(&e)
}

// Handle runs one event through the pipeline: validate, dedup, identity
// check, enrich, persist, notify surfaces. It never returns an error to the
// transport; every failure mode is a logged discard or a degraded record.
func (r *Reconciler) Handle(e *notify.Event) {
	if err := e.Validate(); err != nil {
		r.logger.Warn("discarding invalid event", "error", err)
		return
	}

	r.mu.Lock()
	key := e.DedupKey()
	if r.dedup.seenRecently(key) {
		r.mu.Unlock()
		r.logger.Debug("suppressed duplicate event", "key", key)
		return
	}
	if !notify.MatchesIdentity(e, r.identity) {
		r.mu.Unlock()
		// Defense in depth: the transport should never have routed this
		// here in the first place.
		r.logger.Warn("discarding misrouted event", "booking_id", e.BookingID, "action", e.Action)
		return
	}
	r.dedup.record(key)

	n := Notification{
		ID:      key,
		Message: notify.ComposeMessage(e),
		Type:    recordType(e),
		Action:  string(e.Action),
		IsRead:  false,
	}
	created := r.now().UTC().Format(time.RFC3339)
	n.CreatedAt = created
	n.CreatedAtLegacy = created

	// Most recent first.
	r.list = append([]Notification{n}, r.list...)
	r.persistLocked()
	subs := r.snapshotSubsLocked()
	r.mu.Unlock()

	for _, fn := range subs {
		safeNotify(fn, n)
	}
}

func recordType(e *notify.Event) string {
	if e.IsReminder() {
		return "reminder"
	}
	return "booking"
}

// Subscribe registers a presentation-surface callback for new notifications
// and returns its unsubscribe function. Callbacks are best-effort: a panic
// or a slow surface never affects persistence.
func (r *Reconciler) Subscribe(fn func(Notification)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSub++
	id := r.nextSub
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Notifications returns the current list, most recent first.
func (r *Reconciler) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.list))
	copy(out, r.list)
	return out
}

// UnreadCount returns the number of unread notifications.
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.list {
		if !item.IsRead {
			n++
		}
	}
	return n
}

// MarkAllAsRead flips every record to read. Idempotent; the in-memory list
// and the store update under one lock, so no reader observes a half-done
// state through this instance.
func (r *Reconciler) MarkAllAsRead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	for i := range r.list {
		if !r.list[i].IsRead {
			r.list[i].IsRead = true
			changed = true
		}
	}
	if changed {
		r.persistLocked()
	}
}

// MarkRead flips a single record. Unknown ids are a no-op.
func (r *Reconciler) MarkRead(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.list {
		if r.list[i].ID == id {
			if !r.list[i].IsRead {
				r.list[i].IsRead = true
				r.persistLocked()
			}
			return
		}
	}
}

// ClearAll empties the list and the durable store.
func (r *Reconciler) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = []Notification{}
	if err := r.store.Clear(); err != nil {
		r.logger.Warn("failed to clear notification storage", "error", err)
	}
}

func (r *Reconciler) persistLocked() {
	data, err := encodeList(r.list)
	if err != nil {
		r.logger.Warn("failed to encode notifications", "error", err)
		return
	}
	if err := r.store.Save(data); err != nil {
		// Storage trouble degrades to in-memory only; the list survives
		// until the tab goes away, which beats losing the event now.
		r.logger.Warn("failed to persist notifications", "error", err)
	}
}

func (r *Reconciler) snapshotSubsLocked() []func(Notification) {
	out := make([]func(Notification), 0, len(r.subs))
	for _, fn := range r.subs {
		out = append(out, fn)
	}
	return out
}

func safeNotify(fn func(Notification), n Notification) {
	// Surface callbacks are outside our contract; a panicking toast
	// renderer must not take the pipeline down.
	defer func() { _ = recover() }()
	fn(n)
}
