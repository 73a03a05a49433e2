// Package gauge streams rewards to stakers of registered pool tokens. The
// emission schedule is epoch based: a reward-per-second rate and per pool
// weights are set ahead of each epoch, funded up front, and the per share
// accumulator advances piecewise across epoch boundaries so a rate change
// never leaks into the wrong epoch.
package gauge

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.curvance.io/curvance/events"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/metrics"
	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/ethereum/go-ethereum/common"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrPoolAlreadyRegistered is returned when adding a pool twice.
	ErrPoolAlreadyRegistered = errors.New("pool is already registered")
	// ErrPoolNotFound is returned for an unknown pool token.
	ErrPoolNotFound = errors.New("pool is not registered")
	// ErrNotPermitted is returned when the caller lacks DAO permissions.
	ErrNotPermitted = errors.New("caller lacks permissions for this operation")
	// ErrEpochAlreadyStarted is returned when changing the emission
	// schedule of the current or a past epoch.
	ErrEpochAlreadyStarted = errors.New("epoch schedule can only be changed before the epoch starts")
	// ErrZeroAmount is returned for zero value stake operations.
	ErrZeroAmount = errors.New("amount must not be zero")
	// ErrInsufficientStake is returned when withdrawing more than staked.
	ErrInsufficientStake = errors.New("withdrawal exceeds staked amount")
)

// vaultOwner holds staked pool tokens and the pre-funded reward budgets.
var vaultOwner = common.HexToAddress("0x00000000000000000000000000000000000e5c21")

// mulDiv computes x * y / d. The 256 bit overflow branch is unreachable
// here, every numerator is a reward amount times the per share precision.
func mulDiv(x, y, d *num.Uint) *num.Uint {
	r, _ := num.MulDiv(x, y, d)
	return r
}

// EpochClock provides epoch boundaries and the current time.
type EpochClock interface {
	Epoch(t time.Time) types.Epoch
	EpochEnd(e types.Epoch) time.Time
	CurrentEpoch() types.Epoch
	Duration() time.Duration
	Now() time.Time
}

// Collateral moves stake and reward balances.
type Collateral interface {
	Transfer(from, to types.AccountAddress, asset types.AssetAddress, amount *num.Uint) error
}

// Permissions gates schedule and registry changes.
type Permissions interface {
	HasDAOPermissions(addr types.AccountAddress) bool
}

// Broker is the event bus.
type Broker interface {
	Send(e events.Event)
}

type userStake struct {
	amount *num.Uint
	// rewardDebt is amount * accRewardPerShare at the last settlement,
	// PRECISION scaled.
	rewardDebt *num.Uint
	pending    *num.Uint
}

type poolState struct {
	token types.AssetAddress
	// accRewardPerShare is PRECISION (1e36) scaled.
	accRewardPerShare *num.Uint
	lastRewardTime    time.Time
	totalDeposited    *num.Uint
	users             map[types.AccountAddress]*userStake
}

// Engine is the gauge reward streamer.
type Engine struct {
	log    *logging.Logger
	config Config

	mu         sync.Mutex
	clock      EpochClock
	collateral Collateral
	perms      Permissions
	broker     Broker

	rewardAsset types.AssetAddress

	// pools preserves registration order so settlement sweeps are
	// deterministic.
	pools *orderedmap.OrderedMap[types.AssetAddress, *poolState]
	// rates maps uint64 epoch to the chain wide reward-per-second, kept
	// ordered for schedule inspection.
	rates        *treemap.Map
	weights      map[types.Epoch]map[types.AssetAddress]uint64
	totalWeights map[types.Epoch]uint64
}

// New instantiates the gauge engine.
func New(log *logging.Logger, config Config, clock EpochClock, collateral Collateral, perms Permissions, broker Broker) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:          log,
		config:       config,
		clock:        clock,
		collateral:   collateral,
		perms:        perms,
		broker:       broker,
		rewardAsset:  types.AssetAddressFromHex(config.RewardAsset),
		pools:        orderedmap.New[types.AssetAddress, *poolState](),
		rates:        treemap.NewWith(utils.UInt64Comparator),
		weights:      map[types.Epoch]map[types.AssetAddress]uint64{},
		totalWeights: map[types.Epoch]uint64{},
	}
}

// VaultAccount is the account staked tokens and reward budgets sit in.
func (e *Engine) VaultAccount() types.AccountAddress {
	return vaultOwner
}

// AddPool registers a stakeable pool token.
func (e *Engine) AddPool(caller types.AccountAddress, token types.AssetAddress) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pools.Get(token); ok {
		return ErrPoolAlreadyRegistered
	}
	e.pools.Set(token, &poolState{
		token:             token,
		accRewardPerShare: num.UintZero(),
		totalDeposited:    num.UintZero(),
		users:             map[types.AccountAddress]*userStake{},
	})
	return nil
}

// Pools returns the registered pool tokens in registration order.
func (e *Engine) Pools() []types.AssetAddress {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.AssetAddress, 0, e.pools.Len())
	for pair := e.pools.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// SetEpochRewardPerSec sets the chain wide emission rate for a future
// epoch. The budget difference is settled immediately: an increase is
// pulled from the caller into the vault, a decrease refunded, so every
// scheduled epoch stays fully funded.
func (e *Engine) SetEpochRewardPerSec(caller types.AccountAddress, epoch types.Epoch, rate *num.Uint) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch <= e.clock.CurrentEpoch() {
		return ErrEpochAlreadyStarted
	}
	if rate == nil {
		rate = num.UintZero()
	}

	old := e.rateAt(epoch)
	seconds := num.NewUint(uint64(e.clock.Duration() / time.Second))
	if rate.GT(old) {
		pull := num.UintZero().Mul(num.UintZero().Sub(rate, old), seconds)
		if err := e.collateral.Transfer(caller, vaultOwner, e.rewardAsset, pull); err != nil {
			return err
		}
	} else if rate.LT(old) {
		refund := num.UintZero().Mul(num.UintZero().Sub(old, rate), seconds)
		if err := e.collateral.Transfer(vaultOwner, caller, e.rewardAsset, refund); err != nil {
			return err
		}
	}

	e.rates.Put(uint64(epoch), rate.Clone())
	e.log.Debug("gauge emission rate scheduled",
		logging.Uint64("epoch", uint64(epoch)),
		logging.String("rewardPerSec", rate.String()),
	)
	return nil
}

// SetPoolWeight sets a pool's emission weight for a future epoch.
func (e *Engine) SetPoolWeight(caller types.AccountAddress, epoch types.Epoch, token types.AssetAddress, weight uint64) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch <= e.clock.CurrentEpoch() {
		return ErrEpochAlreadyStarted
	}
	if _, ok := e.pools.Get(token); !ok {
		return ErrPoolNotFound
	}

	w, ok := e.weights[epoch]
	if !ok {
		w = map[types.AssetAddress]uint64{}
		e.weights[epoch] = w
	}
	e.totalWeights[epoch] += weight - w[token]
	w[token] = weight
	return nil
}

// RewardPerSecAt returns the scheduled emission rate of an epoch, zero when
// none was set.
func (e *Engine) RewardPerSecAt(epoch types.Epoch) *num.Uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rateAt(epoch).Clone()
}

func (e *Engine) rateAt(epoch types.Epoch) *num.Uint {
	if v, ok := e.rates.Get(uint64(epoch)); ok {
		return v.(*num.Uint)
	}
	return num.UintZero()
}

// Deposit stakes amount of the pool token for user.
func (e *Engine) Deposit(ctx context.Context, token types.AssetAddress, user types.AccountAddress, amount *num.Uint) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pools.Get(token)
	if !ok {
		return ErrPoolNotFound
	}
	if err := e.collateral.Transfer(user, vaultOwner, token, amount); err != nil {
		return err
	}

	e.updatePool(p, e.clock.Now())
	u := p.stake(user)
	e.settle(p, u)
	u.amount.AddSum(amount)
	p.totalDeposited.AddSum(amount)
	u.rewardDebt = mulDiv(u.amount, p.accRewardPerShare, num.Precision())

	e.broker.Send(events.NewGaugeUpdate(ctx, token, user, events.GaugeDeposit, amount))
	return nil
}

// Withdraw unstakes amount of the pool token.
func (e *Engine) Withdraw(ctx context.Context, token types.AssetAddress, user types.AccountAddress, amount *num.Uint) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pools.Get(token)
	if !ok {
		return ErrPoolNotFound
	}
	u := p.stake(user)
	if u.amount.LT(amount) {
		return ErrInsufficientStake
	}

	e.updatePool(p, e.clock.Now())
	e.settle(p, u)
	u.amount.Sub(u.amount, amount)
	p.totalDeposited.Sub(p.totalDeposited, amount)
	u.rewardDebt = mulDiv(u.amount, p.accRewardPerShare, num.Precision())

	if err := e.collateral.Transfer(vaultOwner, user, token, amount); err != nil {
		return err
	}
	e.broker.Send(events.NewGaugeUpdate(ctx, token, user, events.GaugeWithdraw, amount))
	return nil
}

// Claim pays out the user's accrued rewards for a pool. Returns the amount
// paid.
func (e *Engine) Claim(ctx context.Context, token types.AssetAddress, user types.AccountAddress) (*num.Uint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pools.Get(token)
	if !ok {
		return nil, ErrPoolNotFound
	}
	u := p.stake(user)

	e.updatePool(p, e.clock.Now())
	e.settle(p, u)
	u.rewardDebt = mulDiv(u.amount, p.accRewardPerShare, num.Precision())

	paid := u.pending
	u.pending = num.UintZero()
	if !paid.IsZero() {
		if err := e.collateral.Transfer(vaultOwner, user, e.rewardAsset, paid); err != nil {
			u.pending = paid
			return nil, err
		}
	}

	metrics.GaugeSettleInc(token.Hex())
	e.broker.Send(events.NewGaugeUpdate(ctx, token, user, events.GaugeClaim, paid))
	return paid.Clone(), nil
}

// PendingRewards returns what Claim would pay out right now, without
// touching any state. It walks the same piecewise accumulator the stateful
// path does, so preview and settlement always agree.
func (e *Engine) PendingRewards(token types.AssetAddress, user types.AccountAddress) (*num.Uint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pools.Get(token)
	if !ok {
		return nil, ErrPoolNotFound
	}
	u, ok := p.users[user]
	if !ok {
		return num.UintZero(), nil
	}

	acc := num.UintZero().Add(p.accRewardPerShare, e.accrued(p, p.lastRewardTime, e.clock.Now()))
	settled := mulDiv(u.amount, acc, num.Precision())
	if settled.LT(u.rewardDebt) {
		e.log.Panic("gauge accounting underflow",
			logging.String("pool", token.Hex()),
			logging.String("settled", settled.String()),
			logging.String("debt", u.rewardDebt.String()),
		)
	}
	return num.UintZero().Add(u.pending, num.UintZero().Sub(settled, u.rewardDebt)), nil
}

// Staked returns the user's staked amount in a pool.
func (e *Engine) Staked(token types.AssetAddress, user types.AccountAddress) *num.Uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pools.Get(token)
	if !ok {
		return num.UintZero()
	}
	u, ok := p.users[user]
	if !ok {
		return num.UintZero()
	}
	return u.amount.Clone()
}

// TotalDeposited returns a pool's total staked amount.
func (e *Engine) TotalDeposited(token types.AssetAddress) *num.Uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pools.Get(token)
	if !ok {
		return num.UintZero()
	}
	return p.totalDeposited.Clone()
}

// updatePool advances the pool's per share accumulator to now.
func (e *Engine) updatePool(p *poolState, now time.Time) {
	if p.lastRewardTime.IsZero() {
		p.lastRewardTime = now
		return
	}
	p.accRewardPerShare.AddSum(e.accrued(p, p.lastRewardTime, now))
	p.lastRewardTime = now
}

// accrued computes the per share accumulator delta between two instants,
// segment by segment so each epoch contributes exactly its own rate and
// weight. Pure over engine state, shared by the stateful and preview paths.
func (e *Engine) accrued(p *poolState, from, to time.Time) *num.Uint {
	delta := num.UintZero()
	if from.IsZero() || !to.After(from) || p.totalDeposited.IsZero() {
		return delta
	}
	for cur := from; cur.Before(to); {
		epoch := e.clock.Epoch(cur)
		segEnd := e.clock.EpochEnd(epoch)
		if segEnd.After(to) {
			segEnd = to
		}
		dt := uint64(segEnd.Sub(cur) / time.Second)
		rate := e.rateAt(epoch)
		tw := e.totalWeights[epoch]
		if dt > 0 && !rate.IsZero() && tw > 0 {
			w := e.weights[epoch][p.token]
			if w > 0 {
				reward := mulDiv(
					num.UintZero().Mul(rate, num.NewUint(dt)),
					num.NewUint(w),
					num.NewUint(tw),
				)
				delta.AddSum(mulDiv(reward, num.Precision(), p.totalDeposited))
			}
		}
		cur = segEnd
	}
	return delta
}

// settle folds the accumulator delta since the user's last settlement into
// pending. A settled value below the reward debt means the accumulator went
// backwards, which cannot happen short of memory corruption, so it panics.
func (e *Engine) settle(p *poolState, u *userStake) {
	if u.amount.IsZero() {
		return
	}
	settled := mulDiv(u.amount, p.accRewardPerShare, num.Precision())
	if settled.LT(u.rewardDebt) {
		e.log.Panic("gauge accounting underflow",
			logging.String("pool", p.token.Hex()),
			logging.String("settled", settled.String()),
			logging.String("debt", u.rewardDebt.String()),
		)
	}
	u.pending.AddSum(num.UintZero().Sub(settled, u.rewardDebt))
}

func (p *poolState) stake(user types.AccountAddress) *userStake {
	u, ok := p.users[user]
	if !ok {
		u = &userStake{
			amount:     num.UintZero(),
			rewardDebt: num.UintZero(),
			pending:    num.UintZero(),
		}
		p.users[user] = u
	}
	return u
}
