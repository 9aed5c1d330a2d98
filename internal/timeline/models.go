// Package timeline holds the slowly-changing-dimension domain model: the
// iteration record, its attribute payload, the validation error type, and
// the storage collaborator contract the engine runs against.
package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tempus/pkg/calendar"
	"tempus/pkg/period"
)

// Reserved attribute keys. These name columns the engine owns (or audit
// fields the storage layer owns); they are never copied across a split and
// are silently dropped from caller-supplied attribute changes.
var reservedKeys = map[string]struct{}{
	"id":             {},
	"identity":       {},
	"effective_from": {},
	"effective_to":   {},
	"created_at":     {},
	"updated_at":     {},
}

// Attributes is the domain payload of an iteration. The host entity owns
// its shape; the engine treats it as an opaque key/value map.
type Attributes map[string]any

// Clone returns a shallow copy with the reserved keys dropped.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		if _, ok := reservedKeys[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

// Merge returns a copy of a overlaid with changes. Reserved keys in
// changes are ignored: identity and the temporal bounds are immutable
// outside the dedicated split and terminate operations.
func (a Attributes) Merge(changes Attributes) Attributes {
	out := a.Clone()
	for k, v := range changes {
		if _, ok := reservedKeys[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

// Iteration is one time-bounded snapshot of an identity. The engine owns
// the identity key and the temporal fields; everything else belongs to the
// host entity.
type Iteration struct {
	ID            uuid.UUID     `json:"id"`
	Identity      string        `json:"identity"`
	EffectiveFrom calendar.Date `json:"effective_from"`
	EffectiveTo   calendar.Date `json:"effective_to"`
	Attributes    Attributes    `json:"attributes"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Period returns the iteration's lifespan as a value.
func (it *Iteration) Period() period.Period {
	return period.New(it.EffectiveFrom, it.EffectiveTo)
}

// Initial reports an iteration reaching back to the start of time.
func (it *Iteration) Initial() bool { return it.Period().Initial() }

// Current reports an iteration with an open end.
func (it *Iteration) Current() bool { return it.Period().Current() }

// PastLimited reports a bounded start.
func (it *Iteration) PastLimited() bool { return it.Period().PastLimited() }

// FutureLimited reports a bounded end.
func (it *Iteration) FutureLimited() bool { return it.Period().FutureLimited() }

// Limited reports a bound on either side.
func (it *Iteration) Limited() bool { return it.Period().Limited() }

// Unlimited reports an iteration spanning the whole timeline.
func (it *Iteration) Unlimited() bool { return it.Period().Unlimited() }

// Started reports a start after the beginning of time.
func (it *Iteration) Started() bool { return it.EffectiveFrom > calendar.StartOfTime }

// Ended reports a terminated (closed-end) iteration.
func (it *Iteration) Ended() bool { return it.EffectiveTo < calendar.EndOfTime }

// StartedAt reports whether the iteration's life began before d.
func (it *Iteration) StartedAt(d calendar.Date) bool { return it.EffectiveFrom < d }

// EndedAt reports whether the iteration's life was over by d.
func (it *Iteration) EndedAt(d calendar.Date) bool { return it.EffectiveTo <= d }

// EffectiveFromDate decodes the start bound. The upper sentinel is never a
// legal start.
func (it *Iteration) EffectiveFromDate() (time.Time, error) {
	if it.EffectiveFrom == calendar.EndOfTime {
		return time.Time{}, fmt.Errorf("effective_from holds the end-of-time sentinel")
	}
	return it.EffectiveFrom.Decode()
}

// EffectiveToDate decodes the end bound. The lower sentinel is never a
// legal end.
func (it *Iteration) EffectiveToDate() (time.Time, error) {
	if it.EffectiveTo == calendar.StartOfTime {
		return time.Time{}, fmt.Errorf("effective_to holds the start-of-time sentinel")
	}
	return it.EffectiveTo.Decode()
}

// Clone returns a deep-enough copy for handing records across the store
// boundary without aliasing the attribute map.
func (it *Iteration) Clone() *Iteration {
	if it == nil {
		return nil
	}
	dup := *it
	dup.Attributes = make(Attributes, len(it.Attributes))
	for k, v := range it.Attributes {
		dup.Attributes[k] = v
	}
	return &dup
}

// Validate checks the temporal-bound invariants every persisted iteration
// must satisfy.
func (it *Iteration) Validate() error {
	verr := &ValidationError{}
	if it.EffectiveFrom < calendar.StartOfTime || it.EffectiveFrom >= calendar.EndOfTime {
		verr.Add(CodeInvalidEffectiveFrom, fmt.Sprintf("effective_from %d is out of range", int(it.EffectiveFrom)))
	}
	if it.EffectiveTo <= calendar.StartOfTime || it.EffectiveTo > calendar.EndOfTime {
		verr.Add(CodeInvalidEffectiveTo, fmt.Sprintf("effective_to %d is out of range", int(it.EffectiveTo)))
	}
	if verr.Empty() && it.EffectiveFrom >= it.EffectiveTo {
		verr.Add(CodeEmptyPeriod, fmt.Sprintf("period [%s, %s) is empty", it.EffectiveFrom, it.EffectiveTo))
	}
	if verr.Empty() {
		return nil
	}
	return verr
}
