package audit

import (
	"context"
	"log"
	"time"
)

// Recorder decouples event producers from the sink through a bounded
// channel: Emit never blocks a resolution, at the price of dropping events
// under sustained backpressure.
type Recorder struct {
	sink  Sink
	inbox chan Event
	warn  *log.Logger
}

// NewRecorder returns a recorder buffering up to size events. A nil sink
// yields a recorder that drops everything, which keeps call sites free of
// nil checks when auditing is not configured.
func NewRecorder(sink Sink, size int, warn *log.Logger) *Recorder {
	if size <= 0 {
		size = 256
	}
	if warn == nil {
		warn = log.Default()
	}
	return &Recorder{sink: sink, inbox: make(chan Event, size), warn: warn}
}

// Emit queues the event, stamping the time when unset. Full buffer or
// missing sink drops the event.
func (r *Recorder) Emit(event Event) {
	if r.sink == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case r.inbox <- event:
	default:
		r.warn.Printf("audit buffer full, dropping event %s -> %s", event.Source, event.Target)
	}
}

// Run consumes the inbox until the context is cancelled. Suitable as an
// errgroup task.
func (r *Recorder) Run(ctx context.Context) error {
	if r.sink == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-r.inbox:
			if err := r.sink.Publish(ctx, event); err != nil {
				r.warn.Printf("audit publish: %v", err)
			}
		}
	}
}
