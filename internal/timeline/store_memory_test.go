package timeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempus/pkg/calendar"
	"tempus/pkg/platform/sentinel"
)

func seedIteration(t *testing.T, s *MemoryStore, identity string, from, to calendar.Date) *Iteration {
	t.Helper()
	it := &Iteration{
		ID:            uuid.New(),
		Identity:      identity,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Attributes:    Attributes{"name": identity},
	}
	require.NoError(t, s.Insert(context.Background(), it))
	return it
}

func TestMemoryStoreInsertConflict(t *testing.T) {
	s := NewMemoryStore()
	it := seedIteration(t, s, "CL", calendar.StartOfTime, calendar.EndOfTime)

	err := s.Insert(context.Background(), it)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	it := seedIteration(t, s, "CL", calendar.StartOfTime, calendar.EndOfTime)

	it.EffectiveTo = 20140302
	require.NoError(t, s.Update(ctx, it))

	items, err := s.List(ctx, Filter{Identity: "CL"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, calendar.Date(20140302), items[0].EffectiveTo)

	require.NoError(t, s.Delete(ctx, it.ID))
	assert.ErrorIs(t, s.Delete(ctx, it.ID), sentinel.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, it), sentinel.ErrNotFound)
}

func TestMemoryStoreListIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedIteration(t, s, "CL", calendar.StartOfTime, calendar.EndOfTime)

	items, err := s.List(ctx, Filter{Identity: "CL"})
	require.NoError(t, err)
	items[0].Attributes["name"] = "mutated"
	items[0].EffectiveTo = 19000101

	again, err := s.List(ctx, Filter{Identity: "CL"})
	require.NoError(t, err)
	assert.Equal(t, "CL", again[0].Attributes["name"], "listed rows must not alias stored state")
	assert.Equal(t, calendar.Date(calendar.EndOfTime), again[0].EffectiveTo)
}

func TestMemoryStoreFilterPredicates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	first := seedIteration(t, s, "DE", calendar.StartOfTime, 19491007)
	second := seedIteration(t, s, "DE", 19491007, 19901003)
	third := seedIteration(t, s, "DE", 19901003, calendar.EndOfTime)
	seedIteration(t, s, "DD", 19491007, 19901003)

	at := calendar.Date(19700101)
	wholly := calendar.Date(19491007)

	tests := []struct {
		name   string
		filter Filter
		want   []uuid.UUID
	}{
		{"at a covered date", Filter{Identity: "DE", At: &at}, []uuid.UUID{second.ID}},
		{"current only", Filter{Identity: "DE", Current: true}, []uuid.UUID{third.ID}},
		{"initial only", Filter{Identity: "DE", Initial: true}, []uuid.UUID{first.ID}},
		{"ended only", Filter{Identity: "DE", Ended: true}, []uuid.UUID{first.ID, second.ID}},
		// The second iteration starts exactly at the bound, which is not
		// strictly after it.
		{"wholly after a bound", Filter{Identity: "DE", WhollyAfter: &wholly}, []uuid.UUID{third.ID}},
		{"exact start bound", Filter{Identity: "DE", FromEquals: &wholly}, []uuid.UUID{second.ID}},
		{"exact end bound", Filter{Identity: "DE", ToEquals: &wholly}, []uuid.UUID{first.ID}},
		{"limit caps results", Filter{Identity: "DE", Limit: 2}, []uuid.UUID{first.ID, second.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items, err := s.List(ctx, tc.filter)
			require.NoError(t, err)
			got := make([]uuid.UUID, len(items))
			for i, it := range items {
				got[i] = it.ID
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMemoryStoreWhollyBeforeExcludesInitial(t *testing.T) {
	// Both bounds must lie before the date, so an iteration still covering
	// it does not count as wholly before.
	ctx := context.Background()
	s := NewMemoryStore()
	seedIteration(t, s, "CL", calendar.StartOfTime, 20140302)
	closed := seedIteration(t, s, "SCO", 13140424, 17070501)

	d := calendar.Date(19000101)
	items, err := s.List(ctx, Filter{WhollyBefore: &d})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, closed.ID, items[0].ID)
}

func TestMemoryStoreOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := seedIteration(t, s, "DE", calendar.StartOfTime, 19491007)
	b := seedIteration(t, s, "DE", 19491007, 19901003)
	c := seedIteration(t, s, "DE", 19901003, calendar.EndOfTime)

	tests := []struct {
		name  string
		order Order
		want  []uuid.UUID
	}{
		{"from ascending", OrderFromAsc, []uuid.UUID{a.ID, b.ID, c.ID}},
		{"from descending", OrderFromDesc, []uuid.UUID{c.ID, b.ID, a.ID}},
		{"to ascending", OrderToAsc, []uuid.UUID{a.ID, b.ID, c.ID}},
		{"to descending", OrderToDesc, []uuid.UUID{c.ID, b.ID, a.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items, err := s.List(ctx, Filter{Identity: "DE", Order: tc.order})
			require.NoError(t, err)
			got := make([]uuid.UUID, len(items))
			for i, it := range items {
				got[i] = it.ID
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMemoryStoreOrderingTiebreaksByIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	de := seedIteration(t, s, "DE", 19491007, 19901003)
	dd := seedIteration(t, s, "DD", 19491007, 19901003)

	items, err := s.List(ctx, Filter{Order: OrderFromAsc})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, dd.ID, items[0].ID)
	assert.Equal(t, de.ID, items[1].ID)

	items, err = s.List(ctx, Filter{Order: OrderToDesc})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, dd.ID, items[0].ID)
	assert.Equal(t, de.ID, items[1].ID)
}

func TestMemoryStoreTransactRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	kept := seedIteration(t, s, "CL", calendar.StartOfTime, calendar.EndOfTime)

	boom := errors.New("boom")
	err := s.Transact(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Delete(ctx, kept.ID))
		seedIteration(t, s, "AR", calendar.StartOfTime, calendar.EndOfTime)
		return boom
	})
	require.ErrorIs(t, err, boom)

	items, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ID)
}

func TestMemoryStoreTransactCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Transact(ctx, func(ctx context.Context) error {
		seedIteration(t, s, "CL", calendar.StartOfTime, 20140302)
		seedIteration(t, s, "CL", 20140302, calendar.EndOfTime)
		return nil
	})
	require.NoError(t, err)

	items, err := s.List(ctx, Filter{Identity: "CL"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
