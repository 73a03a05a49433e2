package events

import (
	"context"

	"code.curvance.io/curvance/types"
)

// EpochEvent signals an epoch rollover.
type EpochEvent struct {
	*Base
	Span types.EpochSpan
}

func NewEpochEvent(ctx context.Context, span types.EpochSpan) *EpochEvent {
	return &EpochEvent{
		Base: newBase(ctx, EpochUpdate),
		Span: span,
	}
}

func (e EpochEvent) Epoch() types.Epoch {
	return e.Span.Seq
}
