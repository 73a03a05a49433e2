package rewards_test

import (
	"context"
	"testing"
	"time"

	"code.curvance.io/curvance/collateral"
	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/epochtime"
	"code.curvance.io/curvance/events"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/registry"
	"code.curvance.io/curvance/rewards"
	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
	"code.curvance.io/curvance/veescrow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dao    = types.AssetAddressFromHex("0x40007fDE9004dF12A74d3A7C6ee3959717601Dab")
	feeAcc = types.AssetAddressFromHex("0xFee0000000000000000000000000000000000Acc")
	cve    = types.AssetAddressFromHex("0x00000000000000000000000000000000000C7e00")
	alice  = types.AssetAddressFromHex("0x000000000000000000000000000000000000a11c")

	genesis = time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
)

type stubBroker struct{ evts []events.Event }

func (b *stubBroker) Send(e events.Event) { b.evts = append(b.evts, e) }

func wad(n uint64) *num.Uint {
	return num.UintZero().Mul(num.NewUint(n), num.WAD())
}

type testEngine struct {
	*rewards.Engine
	escrow *veescrow.Ledger
	clock  *epochtime.Svc
	coll   *collateral.Engine
	broker *stubBroker
	pool   types.AccountAddress
}

// getTestEngine wires the reward engine to a live vote escrow ledger on
// 1 hour epochs. The reward asset is the lock token so lock-back claims
// work without a swap leg.
func getTestEngine(t *testing.T) *testEngine {
	t.Helper()
	log := logging.NewTestLogger()
	broker := &stubBroker{}

	reg, err := registry.New(dao, feeAcc, cve)
	require.NoError(t, err)

	etCfg := epochtime.NewDefaultConfig()
	etCfg.EpochDuration = encoding.Duration{Duration: time.Hour}
	clock, err := epochtime.NewService(log, etCfg, genesis, broker)
	require.NoError(t, err)
	clock.OnTick(context.Background(), genesis)

	coll := collateral.New(log, collateral.NewDefaultConfig(), reg, nil)

	veCfg := veescrow.NewDefaultConfig()
	veCfg.EpochDuration = encoding.Duration{Duration: time.Hour}
	veCfg.LockEpochs = 10
	escrow, err := veescrow.New(log, veCfg, clock, coll, reg, broker)
	require.NoError(t, err)

	cfg := rewards.NewDefaultConfig()
	cfg.RewardAsset = cve.Hex()
	eng := rewards.New(log, cfg, escrow, coll, reg, clock, broker)
	escrow.SetRewardTracker(eng)

	// fund the user's lock and the reward pool
	require.NoError(t, coll.Deposit(alice, cve, wad(1000)))
	pool := coll.CreateOrGetRewardPoolAccount(cve)
	require.NoError(t, coll.Deposit(pool, cve, wad(10000)))

	return &testEngine{Engine: eng, escrow: escrow, clock: clock, coll: coll, broker: broker, pool: pool}
}

func (te *testEngine) tickTo(epoch uint64) {
	te.clock.OnTick(context.Background(), genesis.Add(time.Duration(epoch)*time.Hour+time.Minute))
}

func TestRewardDelivery(t *testing.T) {
	te := getTestEngine(t)

	// nothing has ended yet
	_, err := te.RecordEpochRewards(feeAcc, wad(1))
	assert.ErrorIs(t, err, rewards.ErrEpochNotEnded)

	te.tickTo(2)

	// only the fee accumulator delivers
	_, err = te.RecordEpochRewards(alice, wad(1))
	assert.ErrorIs(t, err, rewards.ErrNotFeeAccumulator)

	epoch, err := te.RecordEpochRewards(feeAcc, wad(1))
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(0), epoch)
	epoch, err = te.RecordEpochRewards(feeAcc, wad(1))
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(1), epoch)
	assert.Equal(t, types.Epoch(2), te.EpochsDelivered())

	// epoch 2 is still running
	_, err = te.RecordEpochRewards(feeAcc, wad(1))
	assert.ErrorIs(t, err, rewards.ErrEpochNotEnded)
}

func TestClaimRewards(t *testing.T) {
	t.Run("Claiming three epochs pays three epochs of rewards", testClaimThreeEpochs)
	t.Run("Claims never pass the delivery watermark", testClaimWatermark)
	t.Run("A zero rate epoch still advances the cursor", testClaimZeroRateEpoch)
	t.Run("Failed payout rolls the cursor back", testClaimPayoutFailure)
	t.Run("Lock-back compounds the claim into the escrow", testClaimAsLock)
	t.Run("Lock-back claims must sweep the watermark", testClaimAsLockPartial)
}

func testClaimThreeEpochs(t *testing.T) {
	te := getTestEngine(t)
	ctx := context.Background()

	// 100 points held through epochs 0..2
	_, err := te.escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)
	te.tickTo(3)
	for i := 0; i < 3; i++ {
		_, err := te.RecordEpochRewards(feeAcc, wad(1))
		require.NoError(t, err)
	}

	before := te.coll.Balance(alice, cve)
	paid, err := te.ClaimRewards(ctx, alice, 3, rewards.ClaimOptions{})
	require.NoError(t, err)

	// 100 points * 1.0 per point * 3 epochs
	assert.True(t, paid.EQ(wad(300)))
	assert.Equal(t, types.Epoch(3), te.NextClaimEpoch(alice))
	assert.True(t, te.coll.Balance(alice, cve).EQ(num.UintZero().Add(before, wad(300))))

	// nothing left to claim
	_, err = te.ClaimRewards(ctx, alice, 1, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, rewards.ErrEpochFeesNotYetDelivered)
}

func testClaimWatermark(t *testing.T) {
	te := getTestEngine(t)
	ctx := context.Background()

	_, err := te.escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)
	te.tickTo(2)
	_, err = te.RecordEpochRewards(feeAcc, wad(1))
	require.NoError(t, err)

	// two epochs have ended but only one was delivered
	_, err = te.ClaimRewards(ctx, alice, 2, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, rewards.ErrEpochFeesNotYetDelivered)
	assert.Equal(t, types.Epoch(0), te.NextClaimEpoch(alice))

	paid, err := te.ClaimRewards(ctx, alice, 1, rewards.ClaimOptions{})
	require.NoError(t, err)
	assert.True(t, paid.EQ(wad(100)))
}

func testClaimZeroRateEpoch(t *testing.T) {
	te := getTestEngine(t)
	ctx := context.Background()

	_, err := te.escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)
	te.tickTo(1)
	_, err = te.RecordEpochRewards(feeAcc, nil)
	require.NoError(t, err)

	paid, err := te.ClaimRewards(ctx, alice, 1, rewards.ClaimOptions{})
	require.NoError(t, err)
	assert.True(t, paid.IsZero())
	assert.Equal(t, types.Epoch(1), te.NextClaimEpoch(alice), "cursor advances over zero reward epochs")
	assert.Equal(t, uint64(0), te.EpochsToClaim(alice))
}

func testClaimPayoutFailure(t *testing.T) {
	te := getTestEngine(t)
	ctx := context.Background()

	_, err := te.escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)
	te.tickTo(1)
	_, err = te.RecordEpochRewards(feeAcc, wad(1))
	require.NoError(t, err)

	// drain the reward pool so the payout cannot settle
	require.NoError(t, te.coll.Transfer(te.pool, dao, cve, te.coll.Balance(te.pool, cve)))

	_, err = te.ClaimRewards(ctx, alice, 1, rewards.ClaimOptions{})
	require.Error(t, err)
	assert.Equal(t, types.Epoch(0), te.NextClaimEpoch(alice), "cursor must roll back on payout failure")

	// refund and the same claim goes through
	require.NoError(t, te.coll.Deposit(te.pool, cve, wad(1000)))
	paid, err := te.ClaimRewards(ctx, alice, 1, rewards.ClaimOptions{})
	require.NoError(t, err)
	assert.True(t, paid.EQ(wad(100)))
}

func testClaimAsLock(t *testing.T) {
	te := getTestEngine(t)
	ctx := context.Background()

	_, err := te.escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)
	te.tickTo(1)
	_, err = te.RecordEpochRewards(feeAcc, wad(1))
	require.NoError(t, err)

	balBefore := te.coll.Balance(alice, cve)
	paid, err := te.ClaimRewards(ctx, alice, 1, rewards.ClaimOptions{AsLock: true, ContinuousLock: true})
	require.NoError(t, err)
	assert.True(t, paid.EQ(wad(100)))

	// nothing hit the wallet, the claim became a boosted lock
	assert.True(t, te.coll.Balance(alice, cve).EQ(balBefore))
	assert.True(t, te.escrow.Points(alice).EQ(wad(300)), "100 from the original lock, 200 boosted from the claim")
	require.Len(t, te.escrow.Locks(alice), 2)
	assert.True(t, te.escrow.Locks(alice)[1].Continuous)
}

func testClaimAsLockPartial(t *testing.T) {
	te := getTestEngine(t)
	ctx := context.Background()

	_, err := te.escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)
	te.tickTo(2)
	for i := 0; i < 2; i++ {
		_, err := te.RecordEpochRewards(feeAcc, wad(1))
		require.NoError(t, err)
	}

	// compounding one of two delivered epochs would add points that the
	// remaining epoch's claim would then count
	_, err = te.ClaimRewards(ctx, alice, 1, rewards.ClaimOptions{AsLock: true})
	assert.ErrorIs(t, err, rewards.ErrPartialLockClaim)
	assert.Equal(t, types.Epoch(0), te.NextClaimEpoch(alice))

	paid, err := te.ClaimRewards(ctx, alice, 2, rewards.ClaimOptions{AsLock: true})
	require.NoError(t, err)
	assert.True(t, paid.EQ(wad(200)))
	require.Len(t, te.escrow.Locks(alice), 2)
}

// A user locking after epochs were delivered must not be paid for them: the
// claim loop reads current points, so the ledger refuses new points until
// the empty epochs are claimed off.
func TestLockGatedOnPendingClaims(t *testing.T) {
	te := getTestEngine(t)
	ctx := context.Background()

	// three epochs delivered while alice held nothing
	te.tickTo(3)
	for i := 0; i < 3; i++ {
		_, err := te.RecordEpochRewards(feeAcc, wad(1))
		require.NoError(t, err)
	}

	_, err := te.escrow.CreateLock(ctx, alice, wad(100), false)
	assert.ErrorIs(t, err, veescrow.ErrPendingRewardClaims)

	paid, err := te.ClaimAllRewards(ctx, alice, rewards.ClaimOptions{})
	require.NoError(t, err)
	assert.True(t, paid.IsZero(), "epochs held with zero points pay nothing")
	assert.Equal(t, types.Epoch(3), te.NextClaimEpoch(alice))

	// caught up, the lock goes through and earns from here on only
	_, err = te.escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)
	te.tickTo(4)
	_, err = te.RecordEpochRewards(feeAcc, wad(1))
	require.NoError(t, err)
	paid, err = te.ClaimRewards(ctx, alice, 1, rewards.ClaimOptions{})
	require.NoError(t, err)
	assert.True(t, paid.EQ(wad(100)))

	// increasing an existing lock is gated the same way
	te.tickTo(5)
	_, err = te.RecordEpochRewards(feeAcc, wad(1))
	require.NoError(t, err)
	assert.ErrorIs(t, te.escrow.IncreaseAmount(ctx, alice, 0, wad(50)), veescrow.ErrPendingRewardClaims)

	_, err = te.ClaimAllRewards(ctx, alice, rewards.ClaimOptions{})
	require.NoError(t, err)
	require.NoError(t, te.escrow.IncreaseAmount(ctx, alice, 0, wad(50)))
}

func TestClaimAllRewards(t *testing.T) {
	te := getTestEngine(t)
	ctx := context.Background()

	_, err := te.escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)
	te.tickTo(4)
	for i := 0; i < 4; i++ {
		_, err := te.RecordEpochRewards(feeAcc, wad(2))
		require.NoError(t, err)
	}

	paid, err := te.ClaimAllRewards(ctx, alice, rewards.ClaimOptions{})
	require.NoError(t, err)
	assert.True(t, paid.EQ(wad(800)))
	assert.Equal(t, types.Epoch(4), te.NextClaimEpoch(alice))

	_, err = te.ClaimAllRewards(ctx, alice, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, rewards.ErrNoEpochsToClaim)
	_, err = te.ClaimRewards(ctx, alice, 0, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, rewards.ErrNoEpochsToClaim)
}

func TestClaimAppliesDecayInOrder(t *testing.T) {
	ctx := context.Background()
	log := logging.NewTestLogger()
	broker := &stubBroker{}

	// short lock: 100 points during epochs 0 and 1, zero afterwards
	reg, err := registry.New(dao, feeAcc, cve)
	require.NoError(t, err)
	etCfg := epochtime.NewDefaultConfig()
	etCfg.EpochDuration = encoding.Duration{Duration: time.Hour}
	clock, err := epochtime.NewService(log, etCfg, genesis, broker)
	require.NoError(t, err)
	clock.OnTick(ctx, genesis)
	coll := collateral.New(log, collateral.NewDefaultConfig(), reg, nil)
	veCfg := veescrow.NewDefaultConfig()
	veCfg.EpochDuration = encoding.Duration{Duration: time.Hour}
	veCfg.LockEpochs = 2
	escrow, err := veescrow.New(log, veCfg, clock, coll, reg, broker)
	require.NoError(t, err)
	cfg := rewards.NewDefaultConfig()
	cfg.RewardAsset = cve.Hex()
	eng := rewards.New(log, cfg, escrow, coll, reg, clock, broker)
	escrow.SetRewardTracker(eng)

	require.NoError(t, coll.Deposit(alice, cve, wad(1000)))
	pool := coll.CreateOrGetRewardPoolAccount(cve)
	require.NoError(t, coll.Deposit(pool, cve, wad(10000)))

	_, err = escrow.CreateLock(ctx, alice, wad(100), false)
	require.NoError(t, err)

	clock.OnTick(ctx, genesis.Add(4*time.Hour+time.Minute))
	for i := 0; i < 4; i++ {
		_, err := eng.RecordEpochRewards(feeAcc, wad(1))
		require.NoError(t, err)
	}

	// epochs 0 and 1 pay on 100 points, epoch 2 onwards pays nothing
	// because the lock decayed at its unlock epoch
	paid, err := eng.ClaimRewards(ctx, alice, 4, rewards.ClaimOptions{})
	require.NoError(t, err)
	assert.True(t, paid.EQ(wad(200)))
	assert.True(t, escrow.Points(alice).IsZero())
}
