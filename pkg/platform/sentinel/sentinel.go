package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so the engine can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: no iteration matches the addressed identity/date
// - ErrConflict: a write collides with existing rows
// - ErrInvalidState: resource in wrong state for the requested operation
// - ErrUnavailable: collaborator temporarily unreachable
//
// For interval-invariant violations use timeline.ValidationError instead.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
