package booking

import (
	"context"
	"testing"
	"time"
)

func TestStudentNames(t *testing.T) {
	b := Booking{Students: []Student{{Name: "Ama"}, {Name: "Kofi"}}}
	if got := b.StudentNames(); got != "Ama, Kofi" {
		t.Errorf("Expected 'Ama, Kofi', got %q", got)
	}
	if got := (&Booking{}).StudentNames(); got != "" {
		t.Errorf("Expected empty names, got %q", got)
	}
}

func TestMockRepositoryWindowFilter(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := NewMockRepository()
	repo.Put(&Booking{ID: "in", Schedule: now.Add(time.Hour), Status: StatusConfirmed})
	repo.Put(&Booking{ID: "past", Schedule: now.Add(-time.Hour), Status: StatusConfirmed})
	repo.Put(&Booking{ID: "beyond", Schedule: now.Add(48 * time.Hour), Status: StatusConfirmed})
	repo.Put(&Booking{ID: "pending", Schedule: now.Add(time.Hour), Status: StatusPending})

	got, err := repo.ListConfirmedInWindow(context.Background(), now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "in" {
		t.Errorf("Expected only 'in' inside the window, got %v", got)
	}
}
