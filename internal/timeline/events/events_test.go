package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempus/pkg/calendar"
)

func TestMemoryPublisherCollects(t *testing.T) {
	p := NewMemoryPublisher()
	require.NoError(t, p.Emit(context.Background(), Event{Type: IdentityCreated, Identity: "CL"}))
	require.NoError(t, p.Emit(context.Background(), Event{Type: IterationCreated, Identity: "CL"}))

	got := p.Events()
	require.Len(t, got, 2)
	assert.Equal(t, IdentityCreated, got[0].Type)
	assert.Equal(t, IterationCreated, got[1].Type)

	got[0].Identity = "mutated"
	assert.Equal(t, "CL", p.Events()[0].Identity, "Events must return a copy")
}

func TestEventJSONShape(t *testing.T) {
	stamp := time.Date(2014, 3, 2, 12, 0, 0, 0, time.UTC)
	event := Event{
		Type:          IterationTerminated,
		Identity:      "CL",
		EffectiveFrom: calendar.StartOfTime,
		EffectiveTo:   20140302,
		RequestID:     "req-1",
		Timestamp:     stamp,
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "iteration_terminated", decoded["type"])
	assert.Equal(t, "CL", decoded["identity"])
	assert.Equal(t, float64(0), decoded["effective_from"])
	assert.Equal(t, float64(20140302), decoded["effective_to"])
	assert.Equal(t, "req-1", decoded["request_id"])
}

func TestEventJSONOmitsEmptyRequestID(t *testing.T) {
	raw, err := json.Marshal(Event{Type: IdentityCreated, Identity: "CL"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "request_id")
}

type flakyPublisher struct {
	mu        sync.Mutex
	delivered []Event
	failures  int
}

func (p *flakyPublisher) Emit(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("sink unavailable")
	}
	p.delivered = append(p.delivered, event)
	return nil
}

func (p *flakyPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.delivered)
}

func TestWorkerDrainsUntilInboxCloses(t *testing.T) {
	inbox := make(chan Event, 8)
	sink := &flakyPublisher{}
	w := NewWorker(sink, inbox, WithConcurrency(3))

	for i := 0; i < 8; i++ {
		inbox <- Event{Type: IterationCreated, Identity: "CL"}
	}
	close(inbox)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 8, sink.count())
}

func TestWorkerDropsFailedPublishes(t *testing.T) {
	inbox := make(chan Event, 4)
	sink := &flakyPublisher{failures: 2}
	w := NewWorker(sink, inbox)

	for i := 0; i < 4; i++ {
		inbox <- Event{Type: IterationUpdated, Identity: "CL"}
	}
	close(inbox)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 2, sink.count(), "failed publishes are dropped, not retried")
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	inbox := make(chan Event)
	w := NewWorker(&flakyPublisher{}, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
