package timeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tempus/pkg/platform/sentinel"
)

// MemoryStore keeps iterations in process memory. It backs unit tests and
// small embeddings; the postgres store is the durable collaborator.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Iteration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]*Iteration)}
}

func (s *MemoryStore) Insert(_ context.Context, it *Iteration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; ok {
		return fmt.Errorf("insert iteration %s: %w", it.ID, sentinel.ErrConflict)
	}
	s.items[it.ID] = it.Clone()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, it *Iteration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; !ok {
		return fmt.Errorf("update iteration %s: %w", it.ID, sentinel.ErrNotFound)
	}
	s.items[it.ID] = it.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("delete iteration %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Iteration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Iteration
	for _, it := range s.items {
		if f.Matches(it) {
			out = append(out, it.Clone())
		}
	}
	sortIterations(out, f.Order)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Transact snapshots the whole map and restores it if fn fails, giving the
// all-or-nothing behavior the engine relies on. Serialization across
// concurrent Transact calls is not attempted; the memory store targets
// tests and single-writer embeddings.
func (s *MemoryStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snapshot := make(map[uuid.UUID]*Iteration, len(s.items))
	for id, it := range s.items {
		snapshot[id] = it.Clone()
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.items = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func sortIterations(items []*Iteration, order Order) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch order {
		case OrderFromDesc:
			if a.EffectiveFrom != b.EffectiveFrom {
				return a.EffectiveFrom > b.EffectiveFrom
			}
		case OrderToAsc:
			if a.EffectiveTo != b.EffectiveTo {
				return a.EffectiveTo < b.EffectiveTo
			}
		case OrderToDesc:
			if a.EffectiveTo != b.EffectiveTo {
				return a.EffectiveTo > b.EffectiveTo
			}
		default:
			if a.EffectiveFrom != b.EffectiveFrom {
				return a.EffectiveFrom < b.EffectiveFrom
			}
		}
		// Identity alone breaks ties: the no-overlap invariant means one
		// identity never repeats a bound.
		return a.Identity < b.Identity
	})
}
