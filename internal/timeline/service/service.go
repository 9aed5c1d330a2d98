// Package service implements the temporal versioning engine: the lifecycle
// state machine over an identity's iterations and the query layer that
// reads histories back.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tempus/internal/timeline"
	"tempus/internal/timeline/cache"
	"tempus/internal/timeline/events"
	"tempus/internal/timeline/hooks"
	"tempus/internal/timeline/metrics"
	"tempus/pkg/calendar"
	"tempus/pkg/period"
	"tempus/pkg/platform/sentinel"
	"tempus/pkg/requestcontext"
)

// Service exposes the lifecycle operations and the temporal query layer.
// It holds no state of its own between calls; everything lives in the
// storage collaborator.
type Service struct {
	store     timeline.Store
	hooks     *hooks.Registry
	logger    *slog.Logger
	metrics   *metrics.Metrics
	cache     *cache.Cache
	publisher events.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithHooks installs a host hook registry.
func WithHooks(registry *hooks.Registry) Option {
	return func(s *Service) {
		s.hooks = registry
	}
}

// WithMetrics installs prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCache installs the current-iteration cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithPublisher installs a change-event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// New constructs a Service over the given storage collaborator.
func New(store timeline.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today(ctx context.Context) calendar.Date {
	return calendar.FromTime(requestcontext.Now(ctx))
}

// findAt returns the iteration covering d for identity, or nil. At most
// one can exist under the no-overlap invariant.
func (s *Service) findAt(ctx context.Context, identity string, d calendar.Date) (*timeline.Iteration, error) {
	items, err := s.store.List(ctx, timeline.Filter{Identity: identity, At: &d, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// directSuccessorAfter returns the iteration of identity with the earliest
// start strictly after d, or nil.
func (s *Service) directSuccessorAfter(ctx context.Context, identity string, d calendar.Date) (*timeline.Iteration, error) {
	items, err := s.store.List(ctx, timeline.Filter{
		Identity:    identity,
		WhollyAfter: &d,
		Order:       timeline.OrderFromAsc,
		Limit:       1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveTransition(op, time.Since(start))
	outcome := "ok"
	switch {
	case *err == nil:
	case errors.Is(*err, sentinel.ErrNotFound):
		outcome = "not_found"
	case isRejection(*err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	s.metrics.IncrementTransition(op, outcome)
}

func isRejection(err error) bool {
	var verr *timeline.ValidationError
	var herr *timeline.HookAbortedError
	return errors.As(err, &verr) || errors.As(err, &herr)
}

func (s *Service) emit(ctx context.Context, eventType events.Type, it *timeline.Iteration) {
	if s.publisher == nil {
		return
	}
	event := events.Event{
		Type:          eventType,
		Identity:      it.Identity,
		EffectiveFrom: it.EffectiveFrom,
		EffectiveTo:   it.EffectiveTo,
		RequestID:     requestcontext.RequestID(ctx),
		Timestamp:     requestcontext.Now(ctx),
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.Warn("emit timeline event failed",
			"type", eventType, "identity", it.Identity, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, identity string) {
	if err := s.cache.Invalidate(ctx, identity); err != nil {
		s.logger.Warn("invalidate current-iteration cache failed",
			"identity", identity, "error", err)
	}
}

// CreateIdentity starts a new identity with one iteration spanning the
// given period (usually period.Unbounded()). It rejects any span that
// would overlap an existing iteration of the identity; when a later
// iteration already exists, the new iteration's end is clamped to that
// successor's start, closing the gap between them.
func (s *Service) CreateIdentity(ctx context.Context, identity string, attrs timeline.Attributes, span period.Period) (it *timeline.Iteration, err error) {
	defer s.observe("create_identity", time.Now(), &err)

	now := requestcontext.Now(ctx)
	it = &timeline.Iteration{
		ID:            uuid.New(),
		Identity:      identity,
		EffectiveFrom: span.Start,
		EffectiveTo:   span.End,
		Attributes:    attrs.Clone(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if verr := it.Validate(); verr != nil {
		return nil, verr
	}

	err = s.store.Transact(ctx, func(ctx context.Context) error {
		if span.Unlimited() {
			exists, err := s.HasIdentity(ctx, identity)
			if err != nil {
				return err
			}
			if exists {
				verr := &timeline.ValidationError{}
				verr.Add(timeline.CodePeriodOverlap,
					fmt.Sprintf("identity %q already exists for the chosen period", identity))
				return verr
			}
		} else {
			for _, bound := range [2]calendar.Date{span.Start, span.End} {
				existing, err := s.findAt(ctx, identity, bound)
				if err != nil {
					return err
				}
				if existing != nil && span.Overlaps(existing.Period()) {
					verr := &timeline.ValidationError{}
					verr.Add(timeline.CodePeriodOverlap,
						fmt.Sprintf("identity %q already exists for the chosen period", identity))
					return verr
				}
			}
			// A later iteration bounds the new one: its start becomes the
			// new end, closing any gap between the two.
			successor, err := s.directSuccessorAfter(ctx, identity, span.Start)
			if err != nil {
				return err
			}
			if successor != nil {
				it.EffectiveTo = successor.EffectiveFrom
			}
		}
		return s.store.Insert(ctx, it)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, identity)
	s.emit(ctx, events.IdentityCreated, it)
	s.logger.Info("identity created",
		"identity", identity, "from", it.EffectiveFrom, "to", it.EffectiveTo)
	return it, nil
}

// CreateIteration records a change by splitting the iteration covering
// date: the covering iteration keeps [from, date) and a new iteration
// takes [date, to) with the covering iteration's attributes overlaid with
// changes. Splitting exactly at the covering iteration's start, or at the
// last day it covers, is rejected. Both writes commit atomically.
func (s *Service) CreateIteration(ctx context.Context, identity string, changes timeline.Attributes, at calendar.Date) (it *timeline.Iteration, err error) {
	defer s.observe("create_iteration", time.Now(), &err)

	now := requestcontext.Now(ctx)
	err = s.store.Transact(ctx, func(ctx context.Context) error {
		covering, err := s.findAt(ctx, identity, at)
		if err != nil {
			return err
		}
		if covering == nil {
			return fmt.Errorf("cannot split a period of identity %q that does not exist at %s: %w",
				identity, at, sentinel.ErrNotFound)
		}

		verr := &timeline.ValidationError{}
		if at == covering.EffectiveFrom {
			verr.Add(timeline.CodeSplitAtStartDate,
				fmt.Sprintf("cannot split period %s at its start date", covering.Period()))
		}
		if covering.FutureLimited() {
			lastDay, err := covering.EffectiveTo.Prev()
			if err != nil {
				return err
			}
			if at == lastDay {
				verr.Add(timeline.CodeSplitAtEndDate,
					fmt.Sprintf("cannot split period %s at its end date", covering.Period()))
			}
		}
		if !verr.Empty() {
			return verr
		}

		it = &timeline.Iteration{
			ID:            uuid.New(),
			Identity:      identity,
			EffectiveFrom: at,
			EffectiveTo:   covering.EffectiveTo,
			Attributes:    covering.Attributes.Merge(changes),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := s.hooks.Run(ctx, hooks.BeforeCreateIteration, it); err != nil {
			return err
		}
		if err := s.store.Insert(ctx, it); err != nil {
			return err
		}
		covering.EffectiveTo = at
		covering.UpdatedAt = now
		if err := s.store.Update(ctx, covering); err != nil {
			return err
		}
		return s.hooks.Run(ctx, hooks.AfterCreateIteration, it)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, identity)
	s.emit(ctx, events.IterationCreated, it)
	s.logger.Info("iteration created",
		"identity", identity, "from", it.EffectiveFrom, "to", it.EffectiveTo)
	return it, nil
}

// CreateIterationAtPresent splits at the request-scoped present day.
func (s *Service) CreateIterationAtPresent(ctx context.Context, identity string, changes timeline.Attributes) (*timeline.Iteration, error) {
	return s.CreateIteration(ctx, identity, changes, s.today(ctx))
}

// UpdateIteration applies attribute changes to the iteration covering
// date. The identity key and both temporal bounds are immutable through
// this path; reserved keys in changes are silently dropped.
func (s *Service) UpdateIteration(ctx context.Context, identity string, changes timeline.Attributes, at calendar.Date) (it *timeline.Iteration, err error) {
	defer s.observe("update_iteration", time.Now(), &err)

	it, err = s.findAt(ctx, identity, at)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("cannot update a period of identity %q that does not exist at %s: %w",
			identity, at, sentinel.ErrNotFound)
	}
	it.Attributes = it.Attributes.Merge(changes)
	it.UpdatedAt = requestcontext.Now(ctx)
	if err = s.store.Update(ctx, it); err != nil {
		return nil, err
	}

	s.invalidate(ctx, identity)
	s.emit(ctx, events.IterationUpdated, it)
	return it, nil
}

// UpdateIterationAtPresent updates the iteration covering the present day.
func (s *Service) UpdateIterationAtPresent(ctx context.Context, identity string, changes timeline.Attributes) (*timeline.Iteration, error) {
	return s.UpdateIteration(ctx, identity, changes, s.today(ctx))
}

// TerminateIteration closes the iteration covering date by shrinking its
// end to date (exclusive). Terminating at the iteration's start would
// leave an empty interval and terminating at its last covered day is a
// degenerate no-op; both are rejected. The truncation commits only if
// both hook stages allow it.
func (s *Service) TerminateIteration(ctx context.Context, identity string, at calendar.Date) (it *timeline.Iteration, err error) {
	defer s.observe("terminate_iteration", time.Now(), &err)

	now := requestcontext.Now(ctx)
	err = s.store.Transact(ctx, func(ctx context.Context) error {
		var err error
		it, err = s.findAt(ctx, identity, at)
		if err != nil {
			return err
		}
		if it == nil {
			return fmt.Errorf("cannot terminate a period of identity %q that does not exist at %s: %w",
				identity, at, sentinel.ErrNotFound)
		}

		verr := &timeline.ValidationError{}
		if at == it.EffectiveFrom {
			verr.Add(timeline.CodeTerminateAtStartDate,
				fmt.Sprintf("cannot terminate period %s at its start date", it.Period()))
		}
		if it.FutureLimited() {
			lastDay, perr := it.EffectiveTo.Prev()
			if perr != nil {
				return perr
			}
			if at == lastDay {
				verr.Add(timeline.CodeTerminateAtEndDate,
					fmt.Sprintf("cannot terminate period %s at its end date", it.Period()))
			}
		}
		if !verr.Empty() {
			return verr
		}

		if err := s.hooks.Run(ctx, hooks.BeforeTerminateIteration, it); err != nil {
			return err
		}
		it.EffectiveTo = at
		it.UpdatedAt = now
		if err := s.store.Update(ctx, it); err != nil {
			return err
		}
		return s.hooks.Run(ctx, hooks.AfterTerminateIteration, it)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, identity)
	s.emit(ctx, events.IterationTerminated, it)
	s.logger.Info("iteration terminated",
		"identity", identity, "from", it.EffectiveFrom, "to", it.EffectiveTo)
	return it, nil
}

// TerminateIterationAtPresent terminates at the request-scoped present day.
func (s *Service) TerminateIterationAtPresent(ctx context.Context, identity string) (*timeline.Iteration, error) {
	return s.TerminateIteration(ctx, identity, s.today(ctx))
}

// DestroyIteration removes the single iteration covering date.
func (s *Service) DestroyIteration(ctx context.Context, identity string, at calendar.Date) (it *timeline.Iteration, err error) {
	defer s.observe("destroy_iteration", time.Now(), &err)

	it, err = s.findAt(ctx, identity, at)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("cannot destroy a period of identity %q that does not exist at %s: %w",
			identity, at, sentinel.ErrNotFound)
	}
	if err = s.store.Delete(ctx, it.ID); err != nil {
		return nil, err
	}

	s.invalidate(ctx, identity)
	s.emit(ctx, events.IterationDestroyed, it)
	return it, nil
}

// DestroyIterationAtPresent destroys the iteration covering the present day.
func (s *Service) DestroyIterationAtPresent(ctx context.Context, identity string) (*timeline.Iteration, error) {
	return s.DestroyIteration(ctx, identity, s.today(ctx))
}

// DestroyIdentity removes every iteration of the identity atomically and
// returns the destroyed records.
func (s *Service) DestroyIdentity(ctx context.Context, identity string) (destroyed []*timeline.Iteration, err error) {
	defer s.observe("destroy_identity", time.Now(), &err)

	err = s.store.Transact(ctx, func(ctx context.Context) error {
		items, err := s.store.List(ctx, timeline.Filter{Identity: identity, Order: timeline.OrderFromAsc})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("cannot destroy identity %q that does not exist: %w", identity, sentinel.ErrNotFound)
		}
		for _, it := range items {
			if err := s.store.Delete(ctx, it.ID); err != nil {
				return err
			}
		}
		destroyed = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, identity)
	span := &timeline.Iteration{
		Identity:      identity,
		EffectiveFrom: destroyed[0].EffectiveFrom,
		EffectiveTo:   destroyed[len(destroyed)-1].EffectiveTo,
	}
	s.emit(ctx, events.IdentityDestroyed, span)
	s.logger.Info("identity destroyed", "identity", identity, "iterations", len(destroyed))
	return destroyed, nil
}
