package ingest

import (
	"context"
	"log/slog"
)

// Event names emitted by dialect managers during slot lifecycle operations.
// These are observability notices only; no caller behavior may depend on
// them.
const (
	EventSlotExists      = "slot.exists"
	EventSlotCreated     = "slot.created"
	EventSlotCreateRaced = "slot.create_raced"
	EventSlotNotFound    = "slot.not_found"
	EventSlotDropped     = "slot.dropped"
)

// Event is a structured notice describing a slot lifecycle observation.
type Event struct {
	Name string
	Slot string
}

// Sink receives lifecycle notices from a manager.
type Sink interface {
	Emit(ctx context.Context, evt Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, evt Event)

func (f SinkFunc) Emit(ctx context.Context, evt Event) {
	f(ctx, evt)
}

// NopSink discards all notices.
func NopSink() Sink {
	return SinkFunc(func(context.Context, Event) {})
}

// SlogSink forwards notices to a structured logger at info level.
func SlogSink(log *slog.Logger) Sink {
	return SinkFunc(func(ctx context.Context, evt Event) {
		log.InfoContext(ctx, evt.Name, "slot", evt.Slot)
	})
}
