package events

import (
	"context"
	"time"
)

// Time is the chain time update event.
type Time struct {
	*Base
	blockTime time.Time
}

func NewTime(ctx context.Context, t time.Time) *Time {
	return &Time{
		Base:      newBase(ctx, TimeUpdate),
		blockTime: t,
	}
}

func (t Time) Time() time.Time {
	return t.blockTime
}
