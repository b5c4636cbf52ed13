package state

// MemoryStore is an in-memory Store for unit tests.
type MemoryStore struct {
	entries map[string]float64

	// Writes counts MarkComplete calls, so tests can assert dry-run purity.
	Writes int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]float64)}
}

// NewMemoryStoreWith returns an in-memory store pre-seeded with entries.
func NewMemoryStoreWith(entries map[string]float64) *MemoryStore {
	s := NewMemoryStore()
	for k, v := range entries {
		s.entries[k] = v
	}
	return s
}

func (s *MemoryStore) IsComplete(key string) bool {
	_, ok := s.entries[key]
	return ok
}

func (s *MemoryStore) CompletionTime(key string) (float64, bool) {
	ts, ok := s.entries[key]
	return ts, ok
}

func (s *MemoryStore) MarkComplete(key string, timestamp float64) error {
	s.entries[key] = timestamp
	s.Writes++
	return nil
}

func (s *MemoryStore) ClearKey(key string) error {
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Reset() error {
	s.entries = make(map[string]float64)
	return nil
}

func (s *MemoryStore) Completed() map[string]float64 {
	out := make(map[string]float64, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
