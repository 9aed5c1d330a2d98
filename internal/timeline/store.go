package timeline

import (
	"context"

	"github.com/google/uuid"

	"tempus/pkg/calendar"
)

// Order selects the result ordering of a List call.
type Order int

const (
	OrderFromAsc Order = iota
	OrderFromDesc
	OrderToAsc
	OrderToDesc
)

// Filter is the predicate vocabulary the engine needs from its storage
// collaborator. Zero values mean "no constraint"; date constraints are
// pointers so the sentinels remain addressable values.
type Filter struct {
	// Identity restricts to one identity's iterations when non-empty.
	Identity string

	// At keeps iterations covering the date: from <= d < to.
	At *calendar.Date
	// WhollyBefore keeps iterations whose entire interval lies before the
	// date: from < d AND to < d.
	WhollyBefore *calendar.Date
	// WhollyAfter keeps iterations whose entire interval lies after the
	// date: from > d AND to > d.
	WhollyAfter *calendar.Date

	// FromEquals / ToEquals match an exact bound (chain navigation).
	FromEquals *calendar.Date
	ToEquals   *calendar.Date
	// FromAtLeast / ToAtMost bound a scan (successor/antecessor chains).
	FromAtLeast *calendar.Date
	ToAtMost    *calendar.Date

	// Current keeps open-ended iterations; Initial keeps those reaching
	// back to the start of time; Ended keeps terminated ones.
	Current bool
	Initial bool
	Ended   bool

	Order Order
	Limit int
}

// Matches reports whether one iteration satisfies the filter's predicates
// (ordering and limit aside). Stores that hold rows in memory share this;
// SQL stores compile the same predicates into WHERE clauses.
func (f Filter) Matches(it *Iteration) bool {
	if f.Identity != "" && it.Identity != f.Identity {
		return false
	}
	if f.At != nil && !(it.EffectiveFrom <= *f.At && *f.At < it.EffectiveTo) {
		return false
	}
	if f.WhollyBefore != nil && !(it.EffectiveFrom < *f.WhollyBefore && it.EffectiveTo < *f.WhollyBefore) {
		return false
	}
	if f.WhollyAfter != nil && !(it.EffectiveFrom > *f.WhollyAfter && it.EffectiveTo > *f.WhollyAfter) {
		return false
	}
	if f.FromEquals != nil && it.EffectiveFrom != *f.FromEquals {
		return false
	}
	if f.ToEquals != nil && it.EffectiveTo != *f.ToEquals {
		return false
	}
	if f.FromAtLeast != nil && it.EffectiveFrom < *f.FromAtLeast {
		return false
	}
	if f.ToAtMost != nil && it.EffectiveTo > *f.ToAtMost {
		return false
	}
	if f.Current && it.EffectiveTo != calendar.EndOfTime {
		return false
	}
	if f.Initial && it.EffectiveFrom != calendar.StartOfTime {
		return false
	}
	if f.Ended && it.EffectiveTo >= calendar.EndOfTime {
		return false
	}
	return true
}

// Store is the storage collaborator contract. Implementations must make
// Transact all-or-nothing: every multi-row mutation the engine performs
// (split, identity destruction) re-reads and writes inside one Transact
// scope so a partial write is never observable.
type Store interface {
	Insert(ctx context.Context, it *Iteration) error
	Update(ctx context.Context, it *Iteration) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter) ([]*Iteration, error)
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}
