package reconciler

import (
	"encoding/json"
	"sync"
)

// Notification is the durable client-side record. CreatedAt is persisted
// under both spellings: older builds of the web client wrote created_at and
// still read it back.
type Notification struct {
	ID              string `json:"id"`
	Message         string `json:"message"`
	Type            string `json:"type"`
	Action          string `json:"action"`
	IsRead          bool   `json:"isRead"`
	CreatedAt       string `json:"createdAt"`
	CreatedAtLegacy string `json:"created_at"`
}

// Store is the durable key-value storage behind a reconciler. Load returns
// whatever bytes were last saved; interpreting them (including deciding
// they are corrupt) is the reconciler's job.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Clear() error
}

// MemoryStore keeps the serialized list in memory. Used by tests and as
// the fallback when no storage path is configured.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Seed pre-loads raw bytes, valid or not. Tests use it to simulate both
// surviving state and corrupted storage.
func (s *MemoryStore) Seed(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}

func (s *MemoryStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

func (s *MemoryStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

func encodeList(list []Notification) ([]byte, error) {
	if list == nil {
		list = []Notification{}
	}
	return json.Marshal(list)
}

func decodeList(data []byte) ([]Notification, error) {
	if len(data) == 0 {
		return []Notification{}, nil
	}
	var list []Notification
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}
