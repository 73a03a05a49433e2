// Package rewards implements epoch based reward accrual for vote escrow
// point holders. Fees collected off to the side are delivered per epoch as
// a reward-per-point rate, and users claim epochs in strict order through a
// per user cursor. A zero rate epoch still advances the cursor, delivery is
// what gates claiming, not the amount.
package rewards

import (
	"context"
	"errors"
	"sync"

	"code.curvance.io/curvance/events"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/metrics"
	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

var (
	// ErrNotFeeAccumulator is returned when the reward delivery caller is
	// not the registered fee accumulator.
	ErrNotFeeAccumulator = errors.New("caller is not the fee accumulator")
	// ErrEpochNotEnded is returned when rewards are delivered for an epoch
	// that is still running.
	ErrEpochNotEnded = errors.New("epoch has not ended yet")
	// ErrEpochFeesNotYetDelivered is returned when a claim reaches past the
	// delivery watermark.
	ErrEpochFeesNotYetDelivered = errors.New("epoch fees not yet delivered")
	// ErrNoEpochsToClaim is returned for a zero epoch claim.
	ErrNoEpochsToClaim = errors.New("no epochs to claim")
	// ErrCannotLockReward is returned when a lock-back claim cannot produce
	// the lock token.
	ErrCannotLockReward = errors.New("claim cannot be locked, output is not the lock token")
	// ErrPartialLockClaim is returned when a lock-back claim stops short of
	// the delivery watermark.
	ErrPartialLockClaim = errors.New("lock-back claims must cover every delivered epoch")
)

// VoteEscrow is the point ledger surface the engine consumes.
type VoteEscrow interface {
	UpdateUserPoints(user types.AccountAddress, epoch types.Epoch)
	Points(user types.AccountAddress) *num.Uint
	LockFor(ctx context.Context, payer, user types.AccountAddress, amount *num.Uint, continuous bool) error
}

// Collateral moves reward balances and executes claim swaps.
type Collateral interface {
	Transfer(from, to types.AccountAddress, asset types.AssetAddress, amount *num.Uint) error
	ExecuteSwap(ctx context.Context, owner types.AccountAddress, desc types.SwapDescriptor, amountIn, minOut *num.Uint) (*num.Uint, error)
	CreateOrGetRewardPoolAccount(asset types.AssetAddress) types.AccountAddress
}

// Registry resolves the fee accumulator and the lock token.
type Registry interface {
	FeeAccumulator() types.AccountAddress
	LockToken() types.AssetAddress
}

// EpochClock provides the current epoch index.
type EpochClock interface {
	CurrentEpoch() types.Epoch
}

// Broker is the event bus.
type Broker interface {
	Send(e events.Event)
}

// SwapParams routes a claim through an external swap before payout.
type SwapParams struct {
	Desc   types.SwapDescriptor
	MinOut *num.Uint
}

// ClaimOptions selects the payout shape of a claim. The zero value is a
// plain transfer of the reward asset.
type ClaimOptions struct {
	// AsLock compounds the claim into a vote escrow lock instead of
	// paying it out. The claim must reach the delivery watermark.
	AsLock bool
	// ContinuousLock makes the compounded lock continuous.
	ContinuousLock bool
	// Swap, when set, converts the reward asset before payout.
	Swap *SwapParams
}

// Engine accrues and pays out epoch rewards.
type Engine struct {
	log    *logging.Logger
	config Config

	mu         sync.Mutex
	escrow     VoteEscrow
	collateral Collateral
	registry   Registry
	clock      EpochClock
	broker     Broker

	rewardAsset types.AssetAddress

	// rates[e] is the WAD scaled reward per point of epoch e, present
	// only once delivered.
	rates map[types.Epoch]*num.Uint
	// delivered is the watermark: epochs [0, delivered) have their fees
	// recorded.
	delivered types.Epoch
	// cursors[user] is the next epoch the user will claim.
	cursors map[types.AccountAddress]types.Epoch
}

// New instantiates the reward engine.
func New(log *logging.Logger, config Config, escrow VoteEscrow, collateral Collateral, registry Registry, clock EpochClock, broker Broker) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:         log,
		config:      config,
		escrow:      escrow,
		collateral:  collateral,
		registry:    registry,
		clock:       clock,
		broker:      broker,
		rewardAsset: types.AssetAddressFromHex(config.RewardAsset),
		rates:       map[types.Epoch]*num.Uint{},
		cursors:     map[types.AccountAddress]types.Epoch{},
	}
}

// RewardAsset returns the asset rewards are paid in.
func (e *Engine) RewardAsset() types.AssetAddress {
	return e.rewardAsset
}

// RecordEpochRewards delivers the reward-per-point rate for the next
// undelivered epoch. Only the fee accumulator can deliver, epochs are
// delivered strictly in order, and only once ended. A nil rate records a
// zero reward epoch.
func (e *Engine) RecordEpochRewards(caller types.AccountAddress, rate *num.Uint) (types.Epoch, error) {
	if caller != e.registry.FeeAccumulator() {
		return 0, ErrNotFeeAccumulator
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	epoch := e.delivered
	if epoch >= e.clock.CurrentEpoch() {
		return 0, ErrEpochNotEnded
	}
	if rate == nil {
		rate = num.UintZero()
	}
	e.rates[epoch] = rate.Clone()
	e.delivered++

	e.log.Debug("epoch rewards delivered",
		logging.Uint64("epoch", uint64(epoch)),
		logging.String("rewardPerPoint", rate.String()),
	)
	return epoch, nil
}

// EpochsDelivered returns the delivery watermark: epochs below it have
// their fees recorded.
func (e *Engine) EpochsDelivered() types.Epoch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delivered
}

// NextClaimEpoch returns the user's claim cursor.
func (e *Engine) NextClaimEpoch(user types.AccountAddress) types.Epoch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursors[user]
}

// EpochsToClaim returns how many delivered epochs the user has not claimed
// yet.
func (e *Engine) EpochsToClaim(user types.AccountAddress) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(e.delivered - e.cursors[user])
}

// ClaimRewards claims numEpochs epochs from the user's cursor onwards and
// pays them out per opts. The cursor advances over zero reward epochs like
// any other, but never past the delivery watermark. Returns the amount paid
// out (post swap when one was requested).
func (e *Engine) ClaimRewards(ctx context.Context, user types.AccountAddress, numEpochs uint64, opts ClaimOptions) (*num.Uint, error) {
	if numEpochs == 0 {
		return nil, ErrNoEpochsToClaim
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.claim(ctx, user, numEpochs, opts)
}

// ClaimAllRewards claims every delivered epoch the user has pending.
func (e *Engine) ClaimAllRewards(ctx context.Context, user types.AccountAddress, opts ClaimOptions) (*num.Uint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pending := uint64(e.delivered - e.cursors[user])
	if pending == 0 {
		return nil, ErrNoEpochsToClaim
	}
	return e.claim(ctx, user, pending, opts)
}

func (e *Engine) claim(ctx context.Context, user types.AccountAddress, numEpochs uint64, opts ClaimOptions) (*num.Uint, error) {
	first := e.cursors[user]
	last := first + types.Epoch(numEpochs)
	if last > e.delivered {
		return nil, ErrEpochFeesNotYetDelivered
	}
	// Compounding adds points mid-ledger, which must not inflate epochs the
	// user has yet to claim. A lock-back claim therefore has to sweep the
	// cursor all the way to the watermark.
	if opts.AsLock && last != e.delivered {
		return nil, ErrPartialLockClaim
	}

	// Decay is applied epoch by epoch before reading the rate, so each
	// epoch's reward is computed against the points the user actually
	// held during it. The decay itself is never rolled back on payout
	// failure, it is lazily applied truth either way.
	total := num.UintZero()
	for epoch := first; epoch < last; epoch++ {
		e.escrow.UpdateUserPoints(user, epoch)
		rate := e.rates[epoch]
		if rate == nil || rate.IsZero() {
			continue
		}
		total.AddSum(num.WadMul(e.escrow.Points(user), rate))
	}
	e.cursors[user] = last

	paid, locked, err := e.payout(ctx, user, total, opts)
	if err != nil {
		e.cursors[user] = first
		return nil, err
	}

	metrics.ClaimInc()
	e.broker.Send(events.NewRewardPayout(ctx, user, e.rewardAsset, paid, first, last-1, locked))
	return paid, nil
}

func (e *Engine) payout(ctx context.Context, user types.AccountAddress, total *num.Uint, opts ClaimOptions) (*num.Uint, bool, error) {
	if total.IsZero() {
		return total, false, nil
	}
	pool := e.collateral.CreateOrGetRewardPoolAccount(e.rewardAsset)

	asset := e.rewardAsset
	amount := total
	if opts.Swap != nil {
		out, err := e.collateral.ExecuteSwap(ctx, pool, opts.Swap.Desc, total, opts.Swap.MinOut)
		if err != nil {
			return nil, false, err
		}
		asset = opts.Swap.Desc.OutputAsset
		amount = out
	}

	if opts.AsLock {
		if asset != e.registry.LockToken() {
			return nil, false, ErrCannotLockReward
		}
		if err := e.escrow.LockFor(ctx, pool, user, amount, opts.ContinuousLock); err != nil {
			return nil, false, err
		}
		return amount, true, nil
	}

	if err := e.collateral.Transfer(pool, user, asset, amount); err != nil {
		return nil, false, err
	}
	return amount, false, nil
}
