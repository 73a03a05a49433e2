package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type Type int

const (
	// All event type -> used by subscribers to just receive all events,
	// has no actual corresponding event payload.
	All Type = iota
	TimeUpdate
	EpochUpdate
	PriceUpdateEvent
	RewardPayoutEvent
	LockUpdateEvent
	GaugeUpdateEvent
)

var eventStrings = map[Type]string{
	All:               "ALL",
	TimeUpdate:        "TimeUpdate",
	EpochUpdate:       "EpochUpdate",
	PriceUpdateEvent:  "PriceUpdate",
	RewardPayoutEvent: "RewardPayout",
	LockUpdateEvent:   "LockUpdate",
	GaugeUpdateEvent:  "GaugeUpdate",
}

// String gets the string representation of an event type.
func (t Type) String() string {
	s, ok := eventStrings[t]
	if !ok {
		return "UNKNOWN EVENT"
	}
	return s
}

// Event is the common denominator all bus events share.
type Event interface {
	Type() Type
	Context() context.Context
	TraceID() string
}

// Base holds the fields common to every event.
type Base struct {
	ctx     context.Context
	traceID string
	et      Type
}

type traceIDKey struct{}

// WithTraceID returns a context carrying the given trace ID, so all events
// emitted while handling one request share it.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func traceIDFromContext(ctx context.Context) (context.Context, string) {
	if tID, ok := ctx.Value(traceIDKey{}).(string); ok && tID != "" {
		return ctx, tID
	}
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	tID := hex.EncodeToString(buf)
	return WithTraceID(ctx, tID), tID
}

func newBase(ctx context.Context, t Type) *Base {
	ctx, tID := traceIDFromContext(ctx)
	return &Base{
		ctx:     ctx,
		traceID: tID,
		et:      t,
	}
}

// TraceID returns the trace ID shared by events from the same request.
func (b Base) TraceID() string {
	return b.traceID
}

// Context returns the context the event was emitted with.
func (b Base) Context() context.Context {
	return b.ctx
}

// Type returns the event type.
func (b Base) Type() Type {
	return b.et
}
