package memory

import (
	"context"
	"slices"
	"sync"

	audit "ranchdesk/pkg/platform/audit"
)

type entityKey struct {
	entityType audit.EntityType
	entityID   string
}

// InMemoryStore keeps entries per entity. Stored entries are copies so callers
// cannot mutate history through a returned slice or map.
type InMemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	entries map[entityKey][]audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[entityKey][]audit.Entry)}
}

func (s *InMemoryStore) Append(ctx context.Context, entry *audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.Seq = s.seq
	key := entityKey{entityType: entry.EntityType, entityID: entry.EntityID}
	s.entries[key] = append(s.entries[key], entry.Clone())
	return nil
}

func (s *InMemoryStore) FindForEntity(_ context.Context, entityType audit.EntityType, entityID string) ([]audit.Entry, error) {
	return s.find(entityType, entityID, nil), nil
}

func (s *InMemoryStore) FindForEntityByActions(_ context.Context, entityType audit.EntityType, entityID string, actions []audit.Action) ([]audit.Entry, error) {
	return s.find(entityType, entityID, func(e audit.Entry) bool {
		return slices.Contains(actions, e.Action)
	}), nil
}

func (s *InMemoryStore) FindLatestForEntity(_ context.Context, entityType audit.EntityType, entityID string) (*audit.Entry, error) {
	all := s.find(entityType, entityID, nil)
	if len(all) == 0 {
		return nil, nil
	}
	latest := all[len(all)-1]
	return &latest, nil
}

func (s *InMemoryStore) find(entityType audit.EntityType, entityID string, keep func(audit.Entry) bool) []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.entries[entityKey{entityType: entityType, entityID: entityID}]
	out := make([]audit.Entry, 0, len(stored))
	for _, e := range stored {
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, e.Clone())
	}
	slices.SortStableFunc(out, func(a, b audit.Entry) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Len returns the number of entries across all entities.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entries := range s.entries {
		n += len(entries)
	}
	return n
}
