package types

import "time"

// Epoch is a discrete reward period index. Epoch 0 starts at the clock's
// genesis, and any instant before genesis also maps to epoch 0.
type Epoch uint64

// EpochSpan describes one concrete epoch with its wall clock boundaries,
// as emitted by the epoch clock on rollover.
type EpochSpan struct {
	Seq       Epoch
	StartTime time.Time
	EndTime   time.Time
}
