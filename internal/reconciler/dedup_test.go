package reconciler

import (
	"testing"
	"time"
)

func TestDedupCache(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := base
	c := newDedupCache(5*time.Second, func() time.Time { return clock })

	if c.seenRecently("k1") {
		t.Error("Expected unrecorded key to be new")
	}
	c.record("k1")
	clock = base.Add(2 * time.Second)
	if !c.seenRecently("k1") {
		t.Error("Expected recorded key inside the window to be seen")
	}
	if c.seenRecently("k2") {
		t.Error("Expected a different key to be new")
	}

	clock = base.Add(8 * time.Second)
	if c.seenRecently("k1") {
		t.Error("Expected key to expire after the window")
	}
}

func TestDedupCacheCheckDoesNotRecord(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newDedupCache(5*time.Second, func() time.Time { return base })

	c.seenRecently("k1")
	if c.seenRecently("k1") {
		t.Error("Expected the check alone not to claim the key")
	}
}

func TestDedupCacheSweepsExpired(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := base
	c := newDedupCache(time.Second, func() time.Time { return clock })

	for _, k := range []string{"a", "b", "c"} {
		c.record(k)
	}
	clock = base.Add(2 * time.Second)
	c.seenRecently("d")
	c.record("d")

	// a, b, c expired and were swept; only d remains.
	if len(c.expiry) != 1 {
		t.Errorf("Expected 1 live entry after sweep, got %d", len(c.expiry))
	}
}
