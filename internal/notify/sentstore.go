package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SentStore records which (booking, lead-time) pairs already produced a
// reminder emission. MarkSent must be set-if-absent: the first caller wins
// and every later caller sees false, which is what makes repeated scheduler
// ticks emit at most once per pair.
type SentStore interface {
	// MarkSent marks the pair and reports whether this call created the
	// marker (true = caller should emit).
	MarkSent(ctx context.Context, bookingID string, lead time.Duration) (bool, error)
	// Sent reports whether the pair is already marked.
	Sent(ctx context.Context, bookingID string, lead time.Duration) (bool, error)
}

func sentKey(bookingID string, lead time.Duration) string {
	return fmt.Sprintf("reminder:sent:%s:%s", bookingID, formatLead(lead))
}

// RedisSentStore keeps markers in Redis so the scheduler survives process
// restarts without double-sending. Markers expire once the session is long
// past; the TTL only has to outlive the largest lead time.
type RedisSentStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSentStore(client *redis.Client, ttl time.Duration) *RedisSentStore {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisSentStore{client: client, ttl: ttl}
}

func (s *RedisSentStore) MarkSent(ctx context.Context, bookingID string, lead time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, sentKey(bookingID, lead), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return ok, nil
}

func (s *RedisSentStore) Sent(ctx context.Context, bookingID string, lead time.Duration) (bool, error) {
	n, err := s.client.Exists(ctx, sentKey(bookingID, lead)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reminder marker: %w", err)
	}
	return n > 0, nil
}

// MemorySentStore is the in-process fallback used by tests and the CLI demo.
type MemorySentStore struct {
	mu   sync.Mutex
	sent map[string]struct{}
}

func NewMemorySentStore() *MemorySentStore {
	return &MemorySentStore{sent: make(map[string]struct{})}
}

func (s *MemorySentStore) MarkSent(ctx context.Context, bookingID string, lead time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sentKey(bookingID, lead)
	if _, ok := s.sent[key]; ok {
		return false, nil
	}
	s.sent[key] = struct{}{}
	return true, nil
}

func (s *MemorySentStore) Sent(ctx context.Context, bookingID string, lead time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[sentKey(bookingID, lead)]
	return ok, nil
}
