package booking

import "context"

// EventSink receives domain events from the booking flow. The production sink
// is the transactional outbox; tests and sample mode use NopSink.
type EventSink interface {
	Emit(ctx context.Context, eventType, aggregateID string, payload map[string]any) error
}

type NopSink struct{}

func (NopSink) Emit(context.Context, string, string, map[string]any) error { return nil }
