package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/EJ-pro/Walky/internal/walk"
)

// MemoryStore is a process-local Store used by the "memory" engine and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]walk.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]walk.Record{}}
}

func (s *MemoryStore) Append(_ context.Context, rec walk.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return nil
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryStore) EndedBetween(_ context.Context, userID string, from, to time.Time) ([]walk.Record, error) {
	return s.filter(userID, func(rec walk.Record) bool {
		return !rec.EndedAt.Before(from) && rec.EndedAt.Before(to)
	}, 0), nil
}

func (s *MemoryStore) Recent(_ context.Context, userID string, limit int) ([]walk.Record, error) {
	return s.filter(userID, func(walk.Record) bool { return true }, limit), nil
}

func (s *MemoryStore) filter(userID string, keep func(walk.Record) bool, limit int) []walk.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []walk.Record
	for _, rec := range s.records {
		if rec.UserID == userID && keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
