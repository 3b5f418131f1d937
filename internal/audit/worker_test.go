package audit

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	events chan Event
}

func (c *captureSink) Publish(_ context.Context, event Event) error {
	c.events <- event
	return nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRecorderPublishesEmittedEvents(t *testing.T) {
	sink := &captureSink{events: make(chan Event, 1)}
	recorder := NewRecorder(sink, 4, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- recorder.Run(ctx) }()

	recorder.Emit(Event{Source: "EPSG:4267", Target: "EPSG:4269", Outcome: "found", Operations: 2})

	select {
	case got := <-sink.events:
		assert.Equal(t, "EPSG:4267", got.Source)
		assert.Equal(t, "found", got.Outcome)
		assert.False(t, got.Timestamp.IsZero(), "expected the recorder to stamp the event")
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the sink")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestRecorderKeepsExplicitTimestamp(t *testing.T) {
	sink := &captureSink{events: make(chan Event, 1)}
	recorder := NewRecorder(sink, 4, quietLogger())

	stamp := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recorder.Emit(Event{Source: "EPSG:4267", Target: "EPSG:4269", Timestamp: stamp})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = recorder.Run(ctx) }()

	select {
	case got := <-sink.events:
		assert.True(t, got.Timestamp.Equal(stamp))
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	// No consumer running: the second emit must drop instead of blocking.
	sink := &captureSink{events: make(chan Event, 1)}
	recorder := NewRecorder(sink, 1, quietLogger())

	donec := make(chan struct{})
	go func() {
		recorder.Emit(Event{Source: "a"})
		recorder.Emit(Event{Source: "b"})
		close(donec)
	}()

	select {
	case <-donec:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
}

func TestRecorderWithoutSink(t *testing.T) {
	recorder := NewRecorder(nil, 0, quietLogger())
	recorder.Emit(Event{Source: "a"}) // no-op

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- recorder.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
