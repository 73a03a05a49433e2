package adaptors_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/oracles/adaptors"
	"code.curvance.io/curvance/oracles/adaptors/mocks"
	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	steth = types.AssetAddressFromHex("0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84")
	weth  = types.AssetAddressFromHex("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	admin = types.AssetAddressFromHex("0x40007fDE9004dF12A74d3A7C6ee3959717601Dab")
)

type allowAll struct{}

func (allowAll) HasDAOPermissions(types.AccountAddress) bool      { return true }
func (allowAll) HasElevatedPermissions(types.AccountAddress) bool { return true }

type denyAll struct{}

func (denyAll) HasDAOPermissions(types.AccountAddress) bool      { return false }
func (denyAll) HasElevatedPermissions(types.AccountAddress) bool { return false }

type clock struct{ now time.Time }

func (c *clock) GetTimeNow() time.Time { return c.now }

func wad(n uint64) *num.Uint {
	return num.UintZero().Mul(num.NewUint(n), num.WAD())
}

func TestReferenceFeed(t *testing.T) {
	t.Run("Healthy round is scaled to wad", testReferenceHealthy)
	t.Run("Stale round degrades the quote", testReferenceStale)
	t.Run("Answer outside bounds degrades the quote", testReferenceBounds)
	t.Run("Read failure degrades the quote", testReferenceReadFailure)
	t.Run("Admin operations require elevated permissions", testReferencePermissions)
}

func testReferenceHealthy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	now := time.Unix(1700000000, 0)
	ts := &clock{now}
	reader := mocks.NewMockRoundReader(ctrl)

	feed := adaptors.NewReferenceFeed(logging.NewTestLogger(), "chainlink", allowAll{}, ts)
	require.NoError(t, feed.AddAsset(admin, weth, adaptors.ReferenceFeedConfig{
		Reader:    reader,
		Decimals:  8,
		Heartbeat: time.Hour,
		InUSD:     true,
	}))

	// 3000.00000000 with 8 decimals
	reader.EXPECT().LatestRound().Return(num.NewUint(300000000000), now.Add(-time.Minute), nil)
	q := feed.Quote(context.Background(), weth, true, false)
	require.False(t, q.HadError)
	assert.True(t, q.Price.EQ(wad(3000)))
	assert.True(t, q.InUSD)
}

func testReferenceStale(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	now := time.Unix(1700000000, 0)
	reader := mocks.NewMockRoundReader(ctrl)

	feed := adaptors.NewReferenceFeed(logging.NewTestLogger(), "chainlink", allowAll{}, &clock{now})
	require.NoError(t, feed.AddAsset(admin, weth, adaptors.ReferenceFeedConfig{
		Reader:    reader,
		Decimals:  8,
		Heartbeat: time.Hour,
		InUSD:     true,
	}))

	reader.EXPECT().LatestRound().Return(num.NewUint(300000000000), now.Add(-2*time.Hour), nil)
	q := feed.Quote(context.Background(), weth, true, false)
	assert.True(t, q.HadError)
	assert.ErrorIs(t, q.Reason, adaptors.ErrStaleRound)
}

func testReferenceBounds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	now := time.Unix(1700000000, 0)
	reader := mocks.NewMockRoundReader(ctrl)

	feed := adaptors.NewReferenceFeed(logging.NewTestLogger(), "chainlink", allowAll{}, &clock{now})
	require.NoError(t, feed.AddAsset(admin, weth, adaptors.ReferenceFeedConfig{
		Reader:    reader,
		Decimals:  8,
		Heartbeat: time.Hour,
		MinAnswer: num.NewUint(100000000),
		MaxAnswer: num.NewUint(1000000000000),
		InUSD:     true,
	}))

	reader.EXPECT().LatestRound().Return(num.NewUint(50), now, nil)
	q := feed.Quote(context.Background(), weth, true, false)
	assert.True(t, q.HadError)
	assert.ErrorIs(t, q.Reason, adaptors.ErrAnswerOutsideBounds)

	// zero answers are out regardless of bounds
	reader.EXPECT().LatestRound().Return(num.UintZero(), now, nil)
	q = feed.Quote(context.Background(), weth, true, false)
	assert.True(t, q.HadError)
}

func testReferenceReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	reader := mocks.NewMockRoundReader(ctrl)

	feed := adaptors.NewReferenceFeed(logging.NewTestLogger(), "chainlink", allowAll{}, &clock{time.Unix(1700000000, 0)})
	require.NoError(t, feed.AddAsset(admin, weth, adaptors.ReferenceFeedConfig{
		Reader:    reader,
		Decimals:  8,
		Heartbeat: time.Hour,
		InUSD:     true,
	}))

	reader.EXPECT().LatestRound().Return(nil, time.Time{}, errors.New("rpc timeout"))
	q := feed.Quote(context.Background(), weth, true, false)
	assert.True(t, q.HadError)
}

func testReferencePermissions(t *testing.T) {
	feed := adaptors.NewReferenceFeed(logging.NewTestLogger(), "chainlink", denyAll{}, &clock{time.Unix(1700000000, 0)})
	err := feed.AddAsset(admin, weth, adaptors.ReferenceFeedConfig{})
	assert.ErrorIs(t, err, adaptors.ErrNotPermitted)
	assert.ErrorIs(t, feed.RemoveAsset(admin, weth), adaptors.ErrNotPermitted)
}

func TestTWAPPool(t *testing.T) {
	t.Run("Window below the protocol minimum is rejected", testTWAPMinWindow)
	t.Run("Quote fails closed without a full window of history", testTWAPInsufficientHistory)
	t.Run("Average is time weighted across samples", testTWAPAverage)
	t.Run("getLower picks min of twap and spot", testTWAPGetLower)
	t.Run("Observations must be recorded in time order", testTWAPMonotonic)
}

func newTWAP(t *testing.T, ts adaptors.TimeService) *adaptors.TWAPPool {
	t.Helper()
	pool, err := adaptors.NewTWAPPool(logging.NewTestLogger(), "univ3", allowAll{}, ts, 15*time.Minute)
	require.NoError(t, err)
	return pool
}

func testTWAPMinWindow(t *testing.T) {
	pool := newTWAP(t, &clock{time.Unix(1700000000, 0)})
	err := pool.AddAsset(admin, weth, adaptors.TWAPPoolConfig{Window: time.Minute, InUSD: true})
	assert.ErrorIs(t, err, adaptors.ErrWindowBelowMinimum)

	// the average integrates in whole seconds, so a sub-second protocol
	// minimum is rejected outright
	_, err = adaptors.NewTWAPPool(logging.NewTestLogger(), "univ3", allowAll{}, &clock{time.Unix(1700000000, 0)}, 500*time.Millisecond)
	assert.ErrorIs(t, err, adaptors.ErrWindowBelowMinimum)
}

func testTWAPInsufficientHistory(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ts := &clock{now}
	pool := newTWAP(t, ts)
	require.NoError(t, pool.AddAsset(admin, weth, adaptors.TWAPPoolConfig{Window: time.Hour, InUSD: true}))

	// a single fresh sample cannot cover the window start
	require.NoError(t, pool.RecordObservation(weth, wad(3000), now.Add(-10*time.Minute)))
	q := pool.Quote(context.Background(), weth, true, false)
	assert.True(t, q.HadError)
	assert.ErrorIs(t, q.Reason, adaptors.ErrInsufficientObservations)
}

func testTWAPAverage(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ts := &clock{now}
	pool := newTWAP(t, ts)
	require.NoError(t, pool.AddAsset(admin, weth, adaptors.TWAPPoolConfig{Window: time.Hour, InUSD: true}))

	// 100 for the first half hour, 200 for the second
	require.NoError(t, pool.RecordObservation(weth, wad(100), now.Add(-time.Hour)))
	require.NoError(t, pool.RecordObservation(weth, wad(200), now.Add(-30*time.Minute)))

	q := pool.Quote(context.Background(), weth, true, false)
	require.False(t, q.HadError)
	// twap is 150, spot is 200, no getLower takes the max
	assert.True(t, q.Price.EQ(wad(200)))

	q = pool.Quote(context.Background(), weth, true, true)
	require.False(t, q.HadError)
	assert.True(t, q.Price.EQ(wad(150)))
}

func testTWAPGetLower(t *testing.T) {
	now := time.Unix(1700000000, 0)
	pool := newTWAP(t, &clock{now})
	require.NoError(t, pool.AddAsset(admin, weth, adaptors.TWAPPoolConfig{Window: time.Hour, InUSD: true}))

	// falling market: spot below twap
	require.NoError(t, pool.RecordObservation(weth, wad(200), now.Add(-time.Hour)))
	require.NoError(t, pool.RecordObservation(weth, wad(100), now.Add(-time.Second)))

	lo := pool.Quote(context.Background(), weth, true, true)
	hi := pool.Quote(context.Background(), weth, true, false)
	require.False(t, lo.HadError)
	assert.True(t, lo.Price.EQ(wad(100)))
	assert.True(t, hi.Price.GT(lo.Price))
}

func testTWAPMonotonic(t *testing.T) {
	now := time.Unix(1700000000, 0)
	pool := newTWAP(t, &clock{now})
	require.NoError(t, pool.AddAsset(admin, weth, adaptors.TWAPPoolConfig{Window: time.Hour, InUSD: true}))

	require.NoError(t, pool.RecordObservation(weth, wad(100), now))
	err := pool.RecordObservation(weth, wad(100), now.Add(-time.Minute))
	assert.ErrorIs(t, err, adaptors.ErrNonMonotonicObservation)
	assert.ErrorIs(t, pool.RecordObservation(weth, num.UintZero(), now.Add(time.Minute)), adaptors.ErrZeroObservation)
}

func TestCorrelatedLP(t *testing.T) {
	t.Run("Quote is base price times the live rate", testCorrelatedQuote)
	t.Run("Rate outside the band fails hard", testCorrelatedDepeg)
	t.Run("getLower caps the rate at the peg", testCorrelatedRateCap)
	t.Run("Band must straddle the peg", testCorrelatedBandValidation)
}

type fixedBase struct{ price *num.Uint }

func (fixedBase) Name() string                          { return "base" }
func (fixedBase) Kind() adaptors.Kind                   { return adaptors.KindReferenceFeed }
func (fixedBase) SupportsAsset(types.AssetAddress) bool { return true }
func (f fixedBase) Quote(context.Context, types.AssetAddress, bool, bool) adaptors.Quote {
	return adaptors.Quote{Price: f.price, InUSD: true}
}

func newCorrelated(t *testing.T, basePrice *num.Uint, rates adaptors.RateSource, lower, upper *num.Uint) *adaptors.CorrelatedLP {
	t.Helper()
	lp, err := adaptors.NewCorrelatedLP(logging.NewTestLogger(), "steth", allowAll{}, fixedBase{basePrice})
	require.NoError(t, err)
	require.NoError(t, lp.AddAsset(admin, steth, adaptors.CorrelatedPairConfig{
		Base:       weth,
		Rates:      rates,
		LowerBound: lower,
		UpperBound: upper,
	}))
	return lp
}

func testCorrelatedQuote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rates := mocks.NewMockRateSource(ctrl)
	// band: [0.95, 1.05]
	lp := newCorrelated(t, wad(3000), rates, num.MustUintFromString("950000000000000000"), num.MustUintFromString("1050000000000000000"))

	// rate 0.99
	rates.EXPECT().ExchangeRate().Return(num.MustUintFromString("990000000000000000"), nil)
	q := lp.Quote(context.Background(), steth, true, false)
	require.False(t, q.HadError)
	assert.True(t, q.Price.EQ(wad(2970)))
}

func testCorrelatedDepeg(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rates := mocks.NewMockRateSource(ctrl)
	lp := newCorrelated(t, wad(3000), rates, num.MustUintFromString("950000000000000000"), num.MustUintFromString("1050000000000000000"))

	// rate 0.90, below the band
	rates.EXPECT().ExchangeRate().Return(num.MustUintFromString("900000000000000000"), nil)
	q := lp.Quote(context.Background(), steth, true, false)
	assert.True(t, q.HadError)
	assert.ErrorIs(t, q.Reason, adaptors.ErrRateOutsideBounds)
}

func testCorrelatedRateCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rates := mocks.NewMockRateSource(ctrl)
	lp := newCorrelated(t, wad(3000), rates, num.MustUintFromString("950000000000000000"), num.MustUintFromString("1050000000000000000"))

	// rate 1.04, inside the band but over the peg
	rate := num.MustUintFromString("1040000000000000000")
	rates.EXPECT().ExchangeRate().Return(rate.Clone(), nil).Times(2)

	lo := lp.Quote(context.Background(), steth, true, true)
	require.False(t, lo.HadError)
	assert.True(t, lo.Price.EQ(wad(3000)), "collateral valuation must not profit from a premium")

	hi := lp.Quote(context.Background(), steth, true, false)
	require.False(t, hi.HadError)
	assert.True(t, hi.Price.GT(wad(3000)))
}

func testCorrelatedBandValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	rates := mocks.NewMockRateSource(ctrl)
	lp, err := adaptors.NewCorrelatedLP(logging.NewTestLogger(), "steth", allowAll{}, fixedBase{wad(3000)})
	require.NoError(t, err)

	// band entirely below the peg
	err = lp.AddAsset(admin, steth, adaptors.CorrelatedPairConfig{
		Base:       weth,
		Rates:      rates,
		LowerBound: num.MustUintFromString("800000000000000000"),
		UpperBound: num.MustUintFromString("900000000000000000"),
	})
	assert.ErrorIs(t, err, adaptors.ErrInvalidRateBounds)
}
