package timeline

import (
	"fmt"
	"strings"
)

// Validation fault codes. Stable identifiers the host can match on or map
// to user-facing messages.
const (
	CodeInvalidEffectiveFrom = "effective_from_is_not_valid"
	CodeInvalidEffectiveTo   = "effective_to_is_not_valid"
	CodeEmptyPeriod          = "period_is_empty"
	CodePeriodOverlap        = "identity_period_overlap"
	CodeSplitAtStartDate     = "cannot_split_at_start_date"
	CodeSplitAtEndDate       = "cannot_split_at_end_date"
	CodeTerminateAtStartDate = "cannot_terminate_at_start_date"
	CodeTerminateAtEndDate   = "cannot_terminate_at_end_date"
)

// Fault is one named validation failure.
type Fault struct {
	Code    string
	Message string
}

// ValidationError accumulates named faults against a proposed transition.
// Recoverable by the caller: it is the expected outcome of user-driven
// operations, never a defect.
type ValidationError struct {
	Faults []Fault
}

// Add appends a fault.
func (e *ValidationError) Add(code, message string) {
	e.Faults = append(e.Faults, Fault{Code: code, Message: message})
}

// Empty reports whether any fault was recorded.
func (e *ValidationError) Empty() bool { return len(e.Faults) == 0 }

// Has reports whether a fault with the given code was recorded.
func (e *ValidationError) Has(code string) bool {
	for _, f := range e.Faults {
		if f.Code == code {
			return true
		}
	}
	return false
}

func (e *ValidationError) Error() string {
	if len(e.Faults) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Faults))
	for i, f := range e.Faults {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// HookAbortedError reports a registered hook vetoing a transition. The
// surrounding write is rolled back; persisted state is unchanged.
type HookAbortedError struct {
	Stage  string
	Hook   string
	Reason error
}

func (e *HookAbortedError) Error() string {
	return fmt.Sprintf("hook %q aborted %s: %v", e.Hook, e.Stage, e.Reason)
}

func (e *HookAbortedError) Unwrap() error { return e.Reason }
