// Package events publishes change notifications for lifecycle transitions.
// Emission is best-effort and happens after the transition committed: a
// publish failure is logged by the caller, never unwinds the write.
package events

import (
	"context"
	"time"

	"tempus/pkg/calendar"
)

// Type labels which lifecycle transition produced the event.
type Type string

const (
	IdentityCreated     Type = "identity_created"
	IterationCreated    Type = "iteration_created"
	IterationUpdated    Type = "iteration_updated"
	IterationTerminated Type = "iteration_terminated"
	IterationDestroyed  Type = "iteration_destroyed"
	IdentityDestroyed   Type = "identity_destroyed"
)

// Event describes one committed lifecycle transition.
type Event struct {
	Type          Type          `json:"type"`
	Identity      string        `json:"identity"`
	EffectiveFrom calendar.Date `json:"effective_from"`
	EffectiveTo   calendar.Date `json:"effective_to"`
	RequestID     string        `json:"request_id,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Publisher delivers events to an external sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
