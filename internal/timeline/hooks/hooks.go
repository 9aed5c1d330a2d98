// Package hooks lets host entity types intercept lifecycle transitions.
// Callbacks run in registration order; any callback can veto the
// transition, which short-circuits the remaining chain and rolls back the
// surrounding write.
package hooks

import (
	"context"
	"sync"

	"tempus/internal/timeline"
)

// Stage names an interception point around a lifecycle transition.
type Stage string

const (
	BeforeCreateIteration    Stage = "before_create_iteration"
	AfterCreateIteration     Stage = "after_create_iteration"
	BeforeTerminateIteration Stage = "before_terminate_iteration"
	AfterTerminateIteration  Stage = "after_terminate_iteration"
)

// Result is a callback's verdict on the transition.
type Result struct {
	aborted bool
	reason  error
}

// Continue lets the chain and the underlying write proceed.
func Continue() Result { return Result{} }

// Abort vetoes the transition for the given reason.
func Abort(reason error) Result { return Result{aborted: true, reason: reason} }

// Func observes (and may veto) the iteration a transition is about to
// create or mutate.
type Func func(ctx context.Context, it *timeline.Iteration) Result

type entry struct {
	name string
	fn   Func
}

// Registry holds the ordered callback chains per stage. The zero value is
// not usable; construct with NewRegistry. A nil *Registry runs nothing.
type Registry struct {
	mu     sync.RWMutex
	chains map[Stage][]entry
}

func NewRegistry() *Registry {
	return &Registry{chains: make(map[Stage][]entry)}
}

// Register appends a named callback to the stage's chain.
func (r *Registry) Register(stage Stage, name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[stage] = append(r.chains[stage], entry{name: name, fn: fn})
}

// Run invokes the stage's chain in registration order. The first abort
// stops the chain and is returned as a HookAbortedError.
func (r *Registry) Run(ctx context.Context, stage Stage, it *timeline.Iteration) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	chain := r.chains[stage]
	r.mu.RUnlock()

	for _, e := range chain {
		if res := e.fn(ctx, it); res.aborted {
			return &timeline.HookAbortedError{Stage: string(stage), Hook: e.name, Reason: res.reason}
		}
	}
	return nil
}
