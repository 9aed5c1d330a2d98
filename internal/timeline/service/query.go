package service

import (
	"context"
	"fmt"
	"sort"

	"tempus/internal/timeline"
	"tempus/pkg/calendar"
	"tempus/pkg/period"
	"tempus/pkg/platform/sentinel"
)

// AtDate returns the iteration of identity covering d. Under the
// no-overlap invariant at most one can exist.
func (s *Service) AtDate(ctx context.Context, identity string, d calendar.Date) (*timeline.Iteration, error) {
	it, err := s.findAt(ctx, identity, d)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("identity %q has no iteration at %s: %w", identity, d, sentinel.ErrNotFound)
	}
	return it, nil
}

// AtPresent returns the iteration covering the request-scoped present day.
func (s *Service) AtPresent(ctx context.Context, identity string) (*timeline.Iteration, error) {
	return s.AtDate(ctx, identity, s.today(ctx))
}

// Current returns the identity's open-ended iteration. Served from the
// cache when one is installed; the store stays the source of truth.
func (s *Service) Current(ctx context.Context, identity string) (*timeline.Iteration, error) {
	if s.cache != nil {
		it, hit, err := s.cache.GetCurrent(ctx, identity)
		if err != nil {
			s.metrics.IncrementCacheLookup("error")
			s.logger.Warn("current-iteration cache lookup failed", "identity", identity, "error", err)
		} else if hit {
			s.metrics.IncrementCacheLookup("hit")
			return it, nil
		} else {
			s.metrics.IncrementCacheLookup("miss")
		}
	}

	items, err := s.store.List(ctx, timeline.Filter{Identity: identity, Current: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("identity %q has no current iteration: %w", identity, sentinel.ErrNotFound)
	}
	if s.cache != nil {
		if err := s.cache.SetCurrent(ctx, items[0]); err != nil {
			s.logger.Warn("current-iteration cache store failed", "identity", identity, "error", err)
		}
	}
	return items[0], nil
}

// Initial returns the identity's iteration reaching back to the start of
// time.
func (s *Service) Initial(ctx context.Context, identity string) (*timeline.Iteration, error) {
	items, err := s.store.List(ctx, timeline.Filter{Identity: identity, Initial: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("identity %q has no initial iteration: %w", identity, sentinel.ErrNotFound)
	}
	return items[0], nil
}

// FindBefore returns the identity's latest iteration lying wholly before
// d (the direct antecessor by date), or nil if none.
func (s *Service) FindBefore(ctx context.Context, identity string, d calendar.Date) (*timeline.Iteration, error) {
	items, err := s.store.List(ctx, timeline.Filter{
		Identity:     identity,
		WhollyBefore: &d,
		Order:        timeline.OrderFromDesc,
		Limit:        1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// FindAfter returns the identity's earliest iteration lying wholly after
// d (the direct successor by date), or nil if none.
func (s *Service) FindAfter(ctx context.Context, identity string, d calendar.Date) (*timeline.Iteration, error) {
	return s.directSuccessorAfter(ctx, identity, d)
}

// IterationsBefore returns, across all identities, the iterations whose
// entire interval lies strictly before d.
func (s *Service) IterationsBefore(ctx context.Context, d calendar.Date) ([]*timeline.Iteration, error) {
	return s.store.List(ctx, timeline.Filter{WhollyBefore: &d, Order: timeline.OrderFromAsc})
}

// IterationsAfter returns, across all identities, the iterations whose
// entire interval lies strictly after d.
func (s *Service) IterationsAfter(ctx context.Context, d calendar.Date) ([]*timeline.Iteration, error) {
	return s.store.List(ctx, timeline.Filter{WhollyAfter: &d, Order: timeline.OrderFromAsc})
}

// Successor returns the iteration that starts exactly where it ends, or
// nil when it is current or the chain stops.
func (s *Service) Successor(ctx context.Context, it *timeline.Iteration) (*timeline.Iteration, error) {
	if it.Current() {
		return nil, nil
	}
	items, err := s.store.List(ctx, timeline.Filter{
		Identity:   it.Identity,
		FromEquals: &it.EffectiveTo,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// Antecessor returns the iteration that ends exactly where it starts, or
// nil when it is initial or the chain stops.
func (s *Service) Antecessor(ctx context.Context, it *timeline.Iteration) (*timeline.Iteration, error) {
	if it.Initial() {
		return nil, nil
	}
	items, err := s.store.List(ctx, timeline.Filter{
		Identity: it.Identity,
		ToEquals: &it.EffectiveFrom,
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// Successors returns every later iteration of the same identity, ordered
// by start ascending; empty when it is current.
func (s *Service) Successors(ctx context.Context, it *timeline.Iteration) ([]*timeline.Iteration, error) {
	if it.Current() {
		return nil, nil
	}
	return s.store.List(ctx, timeline.Filter{
		Identity:    it.Identity,
		FromAtLeast: &it.EffectiveTo,
		Order:       timeline.OrderFromAsc,
	})
}

// Antecessors returns every earlier iteration of the same identity,
// ordered by end ascending; empty when it is initial.
func (s *Service) Antecessors(ctx context.Context, it *timeline.Iteration) ([]*timeline.Iteration, error) {
	if it.Initial() {
		return nil, nil
	}
	return s.store.List(ctx, timeline.Filter{
		Identity: it.Identity,
		ToAtMost: &it.EffectiveFrom,
		Order:    timeline.OrderToAsc,
	})
}

// History returns all iterations of the identity ordered by start
// ascending.
func (s *Service) History(ctx context.Context, identity string) ([]*timeline.Iteration, error) {
	return s.store.List(ctx, timeline.Filter{Identity: identity, Order: timeline.OrderFromAsc})
}

// LatestOf returns the identity's iteration with the greatest end — the
// current one, or the last terminated one.
func (s *Service) LatestOf(ctx context.Context, identity string) (*timeline.Iteration, error) {
	items, err := s.store.List(ctx, timeline.Filter{Identity: identity, Order: timeline.OrderToDesc, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("identity %q has no iterations: %w", identity, sentinel.ErrNotFound)
	}
	return items[0], nil
}

// EarliestOf returns the identity's iteration with the smallest start.
func (s *Service) EarliestOf(ctx context.Context, identity string) (*timeline.Iteration, error) {
	items, err := s.store.List(ctx, timeline.Filter{Identity: identity, Order: timeline.OrderFromAsc, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("identity %q has no iterations: %w", identity, sentinel.ErrNotFound)
	}
	return items[0], nil
}

// HasIdentity reports whether any iteration exists for the identity.
func (s *Service) HasIdentity(ctx context.Context, identity string) (bool, error) {
	items, err := s.store.List(ctx, timeline.Filter{Identity: identity, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

// HasIdentityAt reports whether an iteration covers d for the identity.
func (s *Service) HasIdentityAt(ctx context.Context, identity string, d calendar.Date) (bool, error) {
	it, err := s.findAt(ctx, identity, d)
	if err != nil {
		return false, err
	}
	return it != nil, nil
}

// HasIdentityAtPresent reports coverage of the request-scoped present day.
func (s *Service) HasIdentityAtPresent(ctx context.Context, identity string) (bool, error) {
	return s.HasIdentityAt(ctx, identity, s.today(ctx))
}

// HasUnlimitedIdentity reports whether the identity has one iteration
// spanning the whole timeline.
func (s *Service) HasUnlimitedIdentity(ctx context.Context, identity string) (bool, error) {
	start := calendar.StartOfTime
	end := calendar.EndOfTime
	items, err := s.store.List(ctx, timeline.Filter{
		Identity:   identity,
		FromEquals: &start,
		ToEquals:   &end,
		Limit:      1,
	})
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

// CurrentIterations returns the open-ended iteration of every identity.
func (s *Service) CurrentIterations(ctx context.Context) ([]*timeline.Iteration, error) {
	return s.store.List(ctx, timeline.Filter{Current: true, Order: timeline.OrderFromAsc})
}

// InitialIterations returns, across all identities, the iterations
// reaching back to the start of time.
func (s *Service) InitialIterations(ctx context.Context) ([]*timeline.Iteration, error) {
	return s.store.List(ctx, timeline.Filter{Initial: true, Order: timeline.OrderFromAsc})
}

// EndedIterations returns every terminated iteration across all
// identities.
func (s *Service) EndedIterations(ctx context.Context) ([]*timeline.Iteration, error) {
	return s.store.List(ctx, timeline.Filter{Ended: true, Order: timeline.OrderFromAsc})
}

// TerminatedIterations returns, per identity, its latest iteration when
// that iteration is terminated — i.e. the identities that are gone, each
// represented by the iteration that ended them. Identities with an
// open-ended iteration are excluded.
func (s *Service) TerminatedIterations(ctx context.Context) ([]*timeline.Iteration, error) {
	all, err := s.store.List(ctx, timeline.Filter{Order: timeline.OrderFromAsc})
	if err != nil {
		return nil, err
	}
	latest := make(map[string]*timeline.Iteration)
	for _, it := range all {
		if prev, ok := latest[it.Identity]; !ok || it.EffectiveTo > prev.EffectiveTo {
			latest[it.Identity] = it
		}
	}
	var out []*timeline.Iteration
	for _, it := range latest {
		if it.Ended() {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

// SupersededIterations returns every terminated iteration that is
// immediately followed by another iteration of the same identity.
func (s *Service) SupersededIterations(ctx context.Context) ([]*timeline.Iteration, error) {
	all, err := s.store.List(ctx, timeline.Filter{Order: timeline.OrderFromAsc})
	if err != nil {
		return nil, err
	}
	starts := make(map[string]map[calendar.Date]struct{})
	for _, it := range all {
		if starts[it.Identity] == nil {
			starts[it.Identity] = make(map[calendar.Date]struct{})
		}
		starts[it.Identity][it.EffectiveFrom] = struct{}{}
	}
	var out []*timeline.Iteration
	for _, it := range all {
		if !it.Ended() {
			continue
		}
		if _, followed := starts[it.Identity][it.EffectiveTo]; followed {
			out = append(out, it)
		}
	}
	return out, nil
}

// Identities returns the distinct identity keys, sorted.
func (s *Service) Identities(ctx context.Context) ([]string, error) {
	all, err := s.store.List(ctx, timeline.Filter{Order: timeline.OrderFromAsc})
	if err != nil {
		return nil, err
	}
	return distinctIdentities(all), nil
}

// IdentitiesAt returns the distinct identities covered at d, sorted.
func (s *Service) IdentitiesAt(ctx context.Context, d calendar.Date) ([]string, error) {
	items, err := s.store.List(ctx, timeline.Filter{At: &d, Order: timeline.OrderFromAsc})
	if err != nil {
		return nil, err
	}
	return distinctIdentities(items), nil
}

// CurrentIdentities returns the distinct identities with an open-ended
// iteration, sorted.
func (s *Service) CurrentIdentities(ctx context.Context) ([]string, error) {
	items, err := s.CurrentIterations(ctx)
	if err != nil {
		return nil, err
	}
	return distinctIdentities(items), nil
}

func distinctIdentities(items []*timeline.Iteration) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.Identity]; ok {
			continue
		}
		seen[it.Identity] = struct{}{}
		out = append(out, it.Identity)
	}
	sort.Strings(out)
	return out
}

// scopePeriods maps a scope (one identity, or all when identity is empty)
// to the periods of its stored iterations.
func (s *Service) scopePeriods(ctx context.Context, identity string) ([]period.Period, error) {
	items, err := s.store.List(ctx, timeline.Filter{Identity: identity, Order: timeline.OrderFromAsc})
	if err != nil {
		return nil, err
	}
	periods := make([]period.Period, len(items))
	for i, it := range items {
		periods[i] = it.Period()
	}
	return periods, nil
}

// EffectivePeriods returns the distinct sorted (start, end) pairs present
// in the scope. Pass "" to span all identities.
func (s *Service) EffectivePeriods(ctx context.Context, identity string) ([]period.Period, error) {
	periods, err := s.scopePeriods(ctx, identity)
	if err != nil {
		return nil, err
	}
	return period.Effective(periods), nil
}

// CombinedPeriods tiles the scope's observed timeline into maximal
// non-overlapping segments bounded by any iteration's edge.
func (s *Service) CombinedPeriods(ctx context.Context, identity string) ([]period.Period, error) {
	periods, err := s.scopePeriods(ctx, identity)
	if err != nil {
		return nil, err
	}
	return period.Combined(periods), nil
}

// ReferenceDates returns the deduplicated reference dates of the scope's
// effective periods, resolving "today" through the request context.
func (s *Service) ReferenceDates(ctx context.Context, identity string) ([]calendar.Date, error) {
	periods, err := s.scopePeriods(ctx, identity)
	if err != nil {
		return nil, err
	}
	return period.ReferenceDates(periods, s.today(ctx)), nil
}

// EffectivePeriodsFormatted renders EffectivePeriods with the layout.
func (s *Service) EffectivePeriodsFormatted(ctx context.Context, identity, layout string) ([]period.Formatted, error) {
	periods, err := s.EffectivePeriods(ctx, identity)
	if err != nil {
		return nil, err
	}
	return formatPeriods(periods, layout, s.today(ctx)), nil
}

// CombinedPeriodsFormatted renders CombinedPeriods with the layout.
func (s *Service) CombinedPeriodsFormatted(ctx context.Context, identity, layout string) ([]period.Formatted, error) {
	periods, err := s.CombinedPeriods(ctx, identity)
	if err != nil {
		return nil, err
	}
	return formatPeriods(periods, layout, s.today(ctx)), nil
}

func formatPeriods(periods []period.Period, layout string, today calendar.Date) []period.Formatted {
	out := make([]period.Formatted, len(periods))
	for i, p := range periods {
		out[i] = p.Formatted(layout, today)
	}
	return out
}
