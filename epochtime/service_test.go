package epochtime_test

import (
	"context"
	"testing"
	"time"

	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/epochtime"
	"code.curvance.io/curvance/events"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genesis = time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

type stubBroker struct{ evts []events.Event }

func (b *stubBroker) Send(e events.Event) { b.evts = append(b.evts, e) }

func getTestService(t *testing.T, dur time.Duration) (*epochtime.Svc, *stubBroker) {
	t.Helper()
	broker := &stubBroker{}
	cfg := epochtime.NewDefaultConfig()
	cfg.EpochDuration = encoding.Duration{Duration: dur}
	svc, err := epochtime.NewService(logging.NewTestLogger(), cfg, genesis, broker)
	require.NoError(t, err)
	return svc, broker
}

func TestServiceValidation(t *testing.T) {
	log := logging.NewTestLogger()
	broker := &stubBroker{}

	cfg := epochtime.NewDefaultConfig()
	_, err := epochtime.NewService(log, cfg, time.Time{}, broker)
	assert.ErrorIs(t, err, epochtime.ErrGenesisNotSet)

	cfg.EpochDuration = encoding.Duration{}
	_, err = epochtime.NewService(log, cfg, genesis, broker)
	assert.ErrorIs(t, err, epochtime.ErrInvalidEpochDuration)
}

func TestEpochIndexing(t *testing.T) {
	svc, _ := getTestService(t, time.Hour)

	// anything before genesis folds into epoch 0
	assert.Equal(t, types.Epoch(0), svc.Epoch(genesis.Add(-time.Hour)))
	assert.Equal(t, types.Epoch(0), svc.Epoch(genesis))
	assert.Equal(t, types.Epoch(0), svc.Epoch(genesis.Add(59*time.Minute)))
	// boundaries belong to the epoch they open
	assert.Equal(t, types.Epoch(1), svc.Epoch(genesis.Add(time.Hour)))
	assert.Equal(t, types.Epoch(25), svc.Epoch(genesis.Add(25*time.Hour+30*time.Minute)))

	assert.Equal(t, genesis.Add(3*time.Hour), svc.EpochStart(3))
	assert.Equal(t, svc.EpochStart(4), svc.EpochEnd(3))
	assert.Equal(t, time.Hour, svc.Duration())
	assert.Equal(t, genesis, svc.Genesis())
}

func TestOnTick(t *testing.T) {
	t.Run("Every crossed boundary is notified in order", testMultiEpochRollover)
	t.Run("Ticks within an epoch notify nobody", testQuietTick)
	t.Run("Stale and zero ticks are ignored", testStaleTick)
}

func testMultiEpochRollover(t *testing.T) {
	svc, broker := getTestService(t, time.Hour)
	ctx := context.Background()

	var seen []types.Epoch
	svc.NotifyOnEpoch(func(_ context.Context, span types.EpochSpan) {
		seen = append(seen, span.Seq)
	})

	svc.OnTick(ctx, genesis)
	require.Empty(t, seen)

	// a quiet period spanning three epochs still notifies each of them
	svc.OnTick(ctx, genesis.Add(3*time.Hour+10*time.Minute))
	assert.Equal(t, []types.Epoch{1, 2, 3}, seen)
	assert.Equal(t, types.Epoch(3), svc.CurrentEpoch())
	assert.Equal(t, genesis.Add(3*time.Hour+10*time.Minute), svc.Now())

	// one epoch event per boundary went to the bus
	assert.Len(t, broker.evts, 3)
	for i, e := range broker.evts {
		assert.Equal(t, events.EpochUpdate, e.Type())
		assert.Equal(t, types.Epoch(i+1), e.(*events.EpochEvent).Span.Seq)
	}
}

func testQuietTick(t *testing.T) {
	svc, broker := getTestService(t, time.Hour)
	ctx := context.Background()

	notified := 0
	svc.NotifyOnEpoch(func(context.Context, types.EpochSpan) { notified++ })

	svc.OnTick(ctx, genesis.Add(10*time.Minute))
	svc.OnTick(ctx, genesis.Add(40*time.Minute))
	assert.Zero(t, notified)
	assert.Empty(t, broker.evts)
	assert.Equal(t, types.Epoch(0), svc.CurrentEpoch())
}

func testStaleTick(t *testing.T) {
	svc, _ := getTestService(t, time.Hour)
	ctx := context.Background()

	svc.OnTick(ctx, genesis.Add(2*time.Hour))
	require.Equal(t, types.Epoch(2), svc.CurrentEpoch())

	// time never runs backwards
	svc.OnTick(ctx, genesis.Add(time.Hour))
	assert.Equal(t, genesis.Add(2*time.Hour), svc.Now())
	svc.OnTick(ctx, time.Time{})
	assert.Equal(t, genesis.Add(2*time.Hour), svc.Now())
}
