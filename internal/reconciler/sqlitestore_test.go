package reconciler

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.db")

	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	data, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != nil {
		t.Errorf("Expected empty store to load nil, got %q", data)
	}

	if err := s.Save([]byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := s.Save([]byte(`[{"id":"b"}]`)); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}

	data, err = s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `[{"id":"b"}]` {
		t.Errorf("Expected latest save to win, got %q", data)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	data, _ = s.Load()
	if data != nil {
		t.Errorf("Expected nil after clear, got %q", data)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.db")

	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s.Save([]byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	s.Close()

	s2, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s2.Close()

	data, err := s2.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `[{"id":"a"}]` {
		t.Errorf("Expected saved state after reopen, got %q", data)
	}
}
