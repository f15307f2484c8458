package booking

import (
	"context"
	"sync"
	"time"
)

// MockRepository is an in-memory Repository for tests and the CLI demo.
type MockRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking

	// Optional error injection per booking id, used to exercise the
	// scheduler's per-booking failure isolation.
	StatusErr map[string]error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		bookings:  make(map[string]*Booking),
		StatusErr: make(map[string]error),
	}
}

func (m *MockRepository) Put(b *Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

func (m *MockRepository) ListConfirmedInWindow(ctx context.Context, start, end time.Time) ([]*Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.Status != StatusConfirmed {
			continue
		}
		if b.Schedule.Before(start) || !b.Schedule.Before(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *MockRepository) GetStatus(ctx context.Context, id string) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.StatusErr[id]; ok {
		return "", err
	}
	b, ok := m.bookings[id]
	if !ok {
		return "", ErrNotFound
	}
	return b.Status, nil
}
