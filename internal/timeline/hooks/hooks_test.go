package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempus/internal/timeline"
)

func TestRunInvokesChainInOrder(t *testing.T) {
	r := NewRegistry()
	var calls []string
	r.Register(BeforeCreateIteration, "first", func(_ context.Context, _ *timeline.Iteration) Result {
		calls = append(calls, "first")
		return Continue()
	})
	r.Register(BeforeCreateIteration, "second", func(_ context.Context, _ *timeline.Iteration) Result {
		calls = append(calls, "second")
		return Continue()
	})

	err := r.Run(context.Background(), BeforeCreateIteration, &timeline.Iteration{})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRunAbortShortCircuits(t *testing.T) {
	r := NewRegistry()
	cause := errors.New("not allowed")
	var reached bool
	r.Register(BeforeTerminateIteration, "guard", func(_ context.Context, _ *timeline.Iteration) Result {
		return Abort(cause)
	})
	r.Register(BeforeTerminateIteration, "unreached", func(_ context.Context, _ *timeline.Iteration) Result {
		reached = true
		return Continue()
	})

	err := r.Run(context.Background(), BeforeTerminateIteration, &timeline.Iteration{})

	var herr *timeline.HookAbortedError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, string(BeforeTerminateIteration), herr.Stage)
	assert.Equal(t, "guard", herr.Hook)
	assert.ErrorIs(t, err, cause)
	assert.False(t, reached, "abort must stop the chain")
}

func TestRunUnknownStageAndNilRegistry(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Run(context.Background(), AfterCreateIteration, &timeline.Iteration{}))

	var nilReg *Registry
	assert.NoError(t, nilReg.Run(context.Background(), BeforeCreateIteration, &timeline.Iteration{}))
}

func TestHooksSeeTheIteration(t *testing.T) {
	r := NewRegistry()
	var seen string
	r.Register(AfterTerminateIteration, "observer", func(_ context.Context, it *timeline.Iteration) Result {
		seen = it.Identity
		return Continue()
	})

	err := r.Run(context.Background(), AfterTerminateIteration, &timeline.Iteration{Identity: "CL"})

	require.NoError(t, err)
	assert.Equal(t, "CL", seen)
}
