package epochtime

import (
	"context"
	"errors"
	"time"

	"code.curvance.io/curvance/events"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/types"
)

var (
	// ErrInvalidEpochDuration is returned when the configured epoch
	// duration is zero or negative.
	ErrInvalidEpochDuration = errors.New("epoch duration must be positive")
	// ErrGenesisNotSet is returned when the genesis timestamp is the zero
	// time.
	ErrGenesisNotSet = errors.New("genesis timestamp must be set")
)

// Broker is the event bus.
type Broker interface {
	Send(e events.Event)
}

// Svc is the epoch clock. Genesis and duration are immutable once the
// service is built; every component indexing time into reward periods goes
// through the same instance, or validates its own configured duration
// against it via Duration.
type Svc struct {
	log    *logging.Logger
	config Config

	genesis  time.Time
	duration time.Duration

	current   types.Epoch
	now       time.Time
	listeners []func(context.Context, types.EpochSpan)

	broker Broker
}

// NewService instantiates a new epoch clock.
func NewService(log *logging.Logger, config Config, genesis time.Time, broker Broker) (*Svc, error) {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	if genesis.IsZero() {
		return nil, ErrGenesisNotSet
	}
	if config.EpochDuration.Get() <= 0 {
		return nil, ErrInvalidEpochDuration
	}

	return &Svc{
		log:      log,
		config:   config,
		genesis:  genesis,
		duration: config.EpochDuration.Get(),
		broker:   broker,
	}, nil
}

// Epoch converts an instant into its epoch index. Instants before genesis
// map to epoch 0, matching the accrual engines' zero-default semantics.
func (s *Svc) Epoch(t time.Time) types.Epoch {
	if t.Before(s.genesis) {
		return 0
	}
	return types.Epoch(t.Sub(s.genesis) / s.duration)
}

// EpochStart returns the instant epoch e begins.
func (s *Svc) EpochStart(e types.Epoch) time.Time {
	return s.genesis.Add(time.Duration(e) * s.duration)
}

// EpochEnd returns the instant epoch e ends, which is the start of e+1.
func (s *Svc) EpochEnd(e types.Epoch) time.Time {
	return s.EpochStart(e + 1)
}

// Duration returns the immutable epoch duration.
func (s *Svc) Duration() time.Duration {
	return s.duration
}

// Genesis returns the immutable genesis timestamp.
func (s *Svc) Genesis() time.Time {
	return s.genesis
}

// CurrentEpoch returns the epoch of the last observed tick.
func (s *Svc) CurrentEpoch() types.Epoch {
	return s.current
}

// Now returns the last observed tick time.
func (s *Svc) Now() time.Time {
	return s.now
}

// NotifyOnEpoch registers a callback invoked once per epoch rollover, in
// registration order.
func (s *Svc) NotifyOnEpoch(f func(context.Context, types.EpochSpan)) {
	s.listeners = append(s.listeners, f)
}

// OnTick advances the clock. When the tick lands in a later epoch than the
// previous one, every epoch boundary crossed is notified in order, so
// listeners never observe a gap even across a quiet period spanning
// multiple epochs.
func (s *Svc) OnTick(ctx context.Context, t time.Time) {
	if t.IsZero() || t.Before(s.now) {
		return
	}

	prev := s.current
	s.now = t
	next := s.Epoch(t)
	if next <= prev {
		return
	}

	for e := prev + 1; e <= next; e++ {
		span := types.EpochSpan{
			Seq:       e,
			StartTime: s.EpochStart(e),
			EndTime:   s.EpochEnd(e),
		}
		s.log.Debug("epoch rollover",
			logging.Uint64("epoch", uint64(e)),
			logging.Time("start", span.StartTime),
		)
		s.notify(ctx, span)
	}
	s.current = next
}

func (s *Svc) notify(ctx context.Context, span types.EpochSpan) {
	s.broker.Send(events.NewEpochEvent(ctx, span))
	for _, f := range s.listeners {
		f(ctx, span)
	}
}
