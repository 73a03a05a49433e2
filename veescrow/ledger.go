// Package veescrow tracks vote escrow lock positions and the point ledger
// derived from them. Points are the reward weight consumed by the reward
// accrual engine; they decay as locks mature, and the decay is applied
// lazily, one epoch at a time, in claim order.
package veescrow

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

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrBelowMinimumLock is returned when the locked amount is below the
	// configured minimum.
	ErrBelowMinimumLock = errors.New("amount is below the minimum lock")
	// ErrLockNotFound is returned for an unknown lock index.
	ErrLockNotFound = errors.New("lock position not found")
	// ErrLockMatured is returned when extending or increasing a lock that
	// already reached its unlock epoch; it must be processed instead.
	ErrLockMatured = errors.New("lock has matured, process the expired lock")
	// ErrLockNotMatured is returned when processing a lock before its
	// unlock epoch.
	ErrLockNotMatured = errors.New("lock has not matured yet")
	// ErrContinuousLock is returned when an operation needs a finite lock
	// but the position is continuous.
	ErrContinuousLock = errors.New("lock is continuous")
	// ErrNotContinuousLock is returned when disabling continuity on a lock
	// that is already finite.
	ErrNotContinuousLock = errors.New("lock is not continuous")
	// ErrShutdown is returned for mutating operations after the one-way
	// shutdown signal.
	ErrShutdown = errors.New("vote escrow is shut down")
	// ErrNotPermitted is returned when the caller lacks DAO permissions.
	ErrNotPermitted = errors.New("caller lacks permissions for this operation")
	// ErrEpochDurationMismatch is returned when the package configuration
	// disagrees with the epoch clock it was wired to.
	ErrEpochDurationMismatch = errors.New("configured epoch duration does not match the epoch clock")
	// ErrPendingRewardClaims is returned when a lock mutation would add
	// points while delivered reward epochs are still unclaimed. Points
	// added now would count retroactively for those epochs.
	ErrPendingRewardClaims = errors.New("pending reward epochs must be claimed before locking")
)

// vaultOwner holds all locked tokens.
var vaultOwner = common.HexToAddress("0x00000000000000000000000000000000000e5c20")

// EpochClock provides epoch indexing.
type EpochClock interface {
	CurrentEpoch() types.Epoch
	Duration() time.Duration
	NotifyOnEpoch(f func(context.Context, types.EpochSpan))
}

// Collateral moves lock token balances.
type Collateral interface {
	Transfer(from, to types.AccountAddress, asset types.AssetAddress, amount *num.Uint) error
}

// Registry resolves the lock token and permissions.
type Registry interface {
	LockToken() types.AssetAddress
	HasDAOPermissions(addr types.AccountAddress) bool
}

// Broker is the event bus.
type Broker interface {
	Send(e events.Event)
}

// RewardTracker reports how many delivered reward epochs a user has not
// claimed yet. Wired after construction through SetRewardTracker, the
// reward engine is built on top of the ledger.
type RewardTracker interface {
	EpochsToClaim(user types.AccountAddress) uint64
}

// LockPosition is one user lock. Continuous positions auto relock: they
// carry boosted points and never enter an unlock bucket.
type LockPosition struct {
	Amount      *num.Uint
	Continuous  bool
	UnlockEpoch types.Epoch
}

type userLedger struct {
	points  *num.Uint
	unlocks map[types.Epoch]*num.Uint
	locks   []*LockPosition
}

func newUserLedger() *userLedger {
	return &userLedger{
		points:  num.UintZero(),
		unlocks: map[types.Epoch]*num.Uint{},
	}
}

// Ledger is the vote escrow accounting engine.
type Ledger struct {
	log    *logging.Logger
	config Config

	mu         sync.Mutex
	clock      EpochClock
	collateral Collateral
	registry   Registry
	broker     Broker
	rewards    RewardTracker

	users        map[types.AccountAddress]*userLedger
	chainPoints  *num.Uint
	chainUnlocks map[types.Epoch]*num.Uint
	totalLocked  *num.Uint

	boost    num.Decimal
	minLock  *num.Uint
	shutdown bool
}

// New instantiates the vote escrow ledger. The configured epoch duration
// must match the clock's: the two systems sharing epoch indices with
// different durations is exactly the inconsistency this check exists to
// refuse.
func New(log *logging.Logger, config Config, clock EpochClock, collateral Collateral, registry Registry, broker Broker) (*Ledger, error) {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	if config.EpochDuration.Get() != clock.Duration() {
		return nil, ErrEpochDurationMismatch
	}
	if config.LockEpochs == 0 {
		return nil, errors.New("lock duration must be at least one epoch")
	}
	if !config.ContinuousBoost.GreaterThanOrEqual(num.DecimalOne()) {
		return nil, errors.New("continuous boost must be at least 1")
	}

	l := &Ledger{
		log:          log,
		config:       config,
		clock:        clock,
		collateral:   collateral,
		registry:     registry,
		broker:       broker,
		users:        map[types.AccountAddress]*userLedger{},
		chainPoints:  num.UintZero(),
		chainUnlocks: map[types.Epoch]*num.Uint{},
		totalLocked:  num.UintZero(),
		boost:        config.ContinuousBoost,
		minLock:      num.UintZero().Mul(num.NewUint(config.MinLockTokens), num.WAD()),
	}

	// chain wide decay is applied eagerly on rollover, the per user decay
	// stays lazy.
	clock.NotifyOnEpoch(l.onEpoch)
	return l, nil
}

// SetRewardTracker wires the reward engine's claim cursor view into the
// ledger. Until it is set, lock mutations are not gated on pending claims.
func (l *Ledger) SetRewardTracker(rt RewardTracker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rewards = rt
}

// requireClaimsSettled refuses to add points for a user with delivered
// reward epochs still unclaimed: the claim loop reads current points, so
// points added now would pay out for epochs the user held nothing in.
// The tracker is consulted outside the ledger lock, the reward engine
// holds its own lock when it calls back into LockFor.
func (l *Ledger) requireClaimsSettled(user types.AccountAddress) error {
	l.mu.Lock()
	rt := l.rewards
	l.mu.Unlock()
	if rt != nil && rt.EpochsToClaim(user) > 0 {
		return ErrPendingRewardClaims
	}
	return nil
}

// VaultAccount is the account all locked tokens sit in.
func (l *Ledger) VaultAccount() types.AccountAddress {
	return vaultOwner
}

func (l *Ledger) onEpoch(_ context.Context, span types.EpochSpan) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amt, ok := l.chainUnlocks[span.Seq]; ok {
		l.chainPoints.Sub(l.chainPoints, amt)
		delete(l.chainUnlocks, span.Seq)
	}
}

func (l *Ledger) user(addr types.AccountAddress) *userLedger {
	u, ok := l.users[addr]
	if !ok {
		u = newUserLedger()
		l.users[addr] = u
	}
	return u
}

// pointsFor applies the continuous boost when the position is continuous.
func (l *Ledger) pointsFor(amount *num.Uint, continuous bool) *num.Uint {
	if !continuous {
		return amount.Clone()
	}
	p, _ := num.UintFromDecimal(amount.ToDecimal().Mul(l.boost))
	return p
}

// CreateLock locks amount of the lock token for the configured number of
// epochs, or forever when continuous. Returns the new lock's index. Users
// with delivered reward epochs still unclaimed must claim first.
func (l *Ledger) CreateLock(ctx context.Context, user types.AccountAddress, amount *num.Uint, continuous bool) (int, error) {
	if err := l.requireClaimsSettled(user); err != nil {
		return 0, err
	}
	return l.lock(ctx, user, user, amount, continuous)
}

// LockFor locks amount on behalf of user, funded by payer. This is the
// callback path the reward engine uses to compound claims straight into a
// lock; the engine only compounds claims that swept every delivered epoch,
// so the pending claims gate does not apply here.
func (l *Ledger) LockFor(ctx context.Context, payer, user types.AccountAddress, amount *num.Uint, continuous bool) error {
	_, err := l.lock(ctx, payer, user, amount, continuous)
	return err
}

func (l *Ledger) lock(ctx context.Context, payer, user types.AccountAddress, amount *num.Uint, continuous bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shutdown {
		return 0, ErrShutdown
	}
	if amount == nil || amount.LT(l.minLock) || amount.IsZero() {
		return 0, ErrBelowMinimumLock
	}
	if err := l.collateral.Transfer(payer, vaultOwner, l.registry.LockToken(), amount); err != nil {
		return 0, err
	}

	u := l.user(user)
	unlock := l.clock.CurrentEpoch() + types.Epoch(l.config.LockEpochs)
	pos := &LockPosition{
		Amount:      amount.Clone(),
		Continuous:  continuous,
		UnlockEpoch: unlock,
	}
	if continuous {
		pos.UnlockEpoch = 0
	}
	u.locks = append(u.locks, pos)

	pts := l.pointsFor(amount, continuous)
	u.points.AddSum(pts)
	l.chainPoints.AddSum(pts)
	l.totalLocked.AddSum(amount)
	if !continuous {
		l.bucketAdd(u, unlock, amount)
	}

	l.emitLockUpdate(ctx, user, events.LockCreated, amount, u.points, continuous, pos.UnlockEpoch)
	return len(u.locks) - 1, nil
}

// IncreaseAmount adds amount to an existing lock and refreshes its unlock
// epoch. The old unlock bucket entry is moved, never left dangling: a
// stale entry would decay the same points twice. Like CreateLock, it is
// gated on the user's reward claims being settled.
func (l *Ledger) IncreaseAmount(ctx context.Context, user types.AccountAddress, lockIdx int, amount *num.Uint) error {
	if err := l.requireClaimsSettled(user); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shutdown {
		return ErrShutdown
	}
	if amount == nil || amount.IsZero() {
		return ErrBelowMinimumLock
	}
	u := l.user(user)
	pos, err := u.lockAt(lockIdx)
	if err != nil {
		return err
	}
	if !pos.Continuous && pos.UnlockEpoch <= l.clock.CurrentEpoch() {
		return ErrLockMatured
	}
	if err := l.collateral.Transfer(user, vaultOwner, l.registry.LockToken(), amount); err != nil {
		return err
	}

	unlock := l.clock.CurrentEpoch() + types.Epoch(l.config.LockEpochs)
	if !pos.Continuous {
		l.bucketRemove(u, pos.UnlockEpoch, pos.Amount)
		pos.UnlockEpoch = unlock
		l.bucketAdd(u, unlock, num.UintZero().Add(pos.Amount, amount))
	}
	pos.Amount.AddSum(amount)

	pts := l.pointsFor(amount, pos.Continuous)
	u.points.AddSum(pts)
	l.chainPoints.AddSum(pts)
	l.totalLocked.AddSum(amount)

	l.emitLockUpdate(ctx, user, events.LockIncreased, amount, u.points, pos.Continuous, pos.UnlockEpoch)
	return nil
}

// ExtendLock refreshes a finite lock's unlock epoch, moving its bucket
// entry atomically.
func (l *Ledger) ExtendLock(ctx context.Context, user types.AccountAddress, lockIdx int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shutdown {
		return ErrShutdown
	}
	u := l.user(user)
	pos, err := u.lockAt(lockIdx)
	if err != nil {
		return err
	}
	if pos.Continuous {
		return ErrContinuousLock
	}
	if pos.UnlockEpoch <= l.clock.CurrentEpoch() {
		return ErrLockMatured
	}

	unlock := l.clock.CurrentEpoch() + types.Epoch(l.config.LockEpochs)
	l.bucketRemove(u, pos.UnlockEpoch, pos.Amount)
	pos.UnlockEpoch = unlock
	l.bucketAdd(u, unlock, pos.Amount)

	l.emitLockUpdate(ctx, user, events.LockExtended, pos.Amount, u.points, false, unlock)
	return nil
}

// DisableContinuousLock converts a continuous position into a finite one
// serving a fresh full term. The boost is forfeited immediately and the
// amount enters the unlock bucket like any freshly created lock.
func (l *Ledger) DisableContinuousLock(ctx context.Context, user types.AccountAddress, lockIdx int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shutdown {
		return ErrShutdown
	}
	u := l.user(user)
	pos, err := u.lockAt(lockIdx)
	if err != nil {
		return err
	}
	if !pos.Continuous {
		return ErrNotContinuousLock
	}

	boosted := l.pointsFor(pos.Amount, true)
	forfeited := num.UintZero().Sub(boosted, pos.Amount)
	u.points.Sub(u.points, forfeited)
	l.chainPoints.Sub(l.chainPoints, forfeited)

	unlock := l.clock.CurrentEpoch() + types.Epoch(l.config.LockEpochs)
	pos.Continuous = false
	pos.UnlockEpoch = unlock
	l.bucketAdd(u, unlock, pos.Amount)

	l.emitLockUpdate(ctx, user, events.LockContinuousDisabled, pos.Amount, u.points, false, unlock)
	return nil
}

// ProcessExpiredLock pays a matured lock back out. Decay scheduled for the
// lock's unlock epoch is applied first, so processing never releases
// points twice. Continuous locks can only exit after shutdown.
func (l *Ledger) ProcessExpiredLock(ctx context.Context, user types.AccountAddress, lockIdx int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.user(user)
	pos, err := u.lockAt(lockIdx)
	if err != nil {
		return err
	}

	if pos.Continuous {
		if !l.shutdown {
			return ErrContinuousLock
		}
		pts := l.pointsFor(pos.Amount, true)
		u.points.Sub(u.points, pts)
		l.chainPoints.Sub(l.chainPoints, pts)
	} else {
		if !l.shutdown && pos.UnlockEpoch > l.clock.CurrentEpoch() {
			return ErrLockNotMatured
		}
		if l.shutdown && pos.UnlockEpoch > l.clock.CurrentEpoch() {
			// early exit under shutdown, bucket entry still pending
			l.bucketRemove(u, pos.UnlockEpoch, pos.Amount)
			u.points.Sub(u.points, pos.Amount)
			l.chainPoints.Sub(l.chainPoints, pos.Amount)
		} else {
			// normal maturity, settle through the decay path
			l.applyDecay(u, pos.UnlockEpoch)
		}
	}

	if err := l.collateral.Transfer(vaultOwner, user, l.registry.LockToken(), pos.Amount); err != nil {
		return err
	}
	l.totalLocked.Sub(l.totalLocked, pos.Amount)
	amount := pos.Amount.Clone()
	u.removeLock(lockIdx)

	l.emitLockUpdate(ctx, user, events.LockProcessed, amount, u.points, pos.Continuous, pos.UnlockEpoch)
	return nil
}

// UpdateUserPoints applies the decay scheduled for the given epoch to the
// user's points. It is idempotent per epoch: the bucket entry is zeroed
// with the first application, a second call is a no-op. The reward engine
// calls this, in epoch order, before computing each epoch's rewards.
func (l *Ledger) UpdateUserPoints(user types.AccountAddress, epoch types.Epoch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyDecay(l.user(user), epoch)
}

func (l *Ledger) applyDecay(u *userLedger, epoch types.Epoch) {
	if epoch > l.clock.CurrentEpoch() {
		// the bucket has not been reached yet
		return
	}
	amt, ok := u.unlocks[epoch]
	if !ok || amt.IsZero() {
		return
	}
	u.points.Sub(u.points, amt)
	delete(u.unlocks, epoch)
}

// Points returns the user's settled points. Decay scheduled for epochs the
// user has not claimed through yet is not reflected here.
func (l *Ledger) Points(user types.AccountAddress) *num.Uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user(user).points.Clone()
}

// UnlocksAt returns the user's pending unlock amount for an epoch, zero
// when nothing is scheduled.
func (l *Ledger) UnlocksAt(user types.AccountAddress, epoch types.Epoch) *num.Uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amt, ok := l.user(user).unlocks[epoch]; ok {
		return amt.Clone()
	}
	return num.UintZero()
}

// ChainPoints returns the chain wide point total.
func (l *Ledger) ChainPoints() *num.Uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chainPoints.Clone()
}

// ChainUnlocksAt returns the chain wide unlock amount scheduled for an
// epoch.
func (l *Ledger) ChainUnlocksAt(epoch types.Epoch) *num.Uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amt, ok := l.chainUnlocks[epoch]; ok {
		return amt.Clone()
	}
	return num.UintZero()
}

// TotalLocked returns the total locked token amount.
func (l *Ledger) TotalLocked() *num.Uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked.Clone()
}

// Locks returns copies of the user's lock positions.
func (l *Ledger) Locks(user types.AccountAddress) []LockPosition {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := l.user(user)
	out := make([]LockPosition, 0, len(u.locks))
	for _, pos := range u.locks {
		out = append(out, LockPosition{
			Amount:      pos.Amount.Clone(),
			Continuous:  pos.Continuous,
			UnlockEpoch: pos.UnlockEpoch,
		})
	}
	return out
}

// IsShutdown reports whether the one-way shutdown signal fired.
func (l *Ledger) IsShutdown() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shutdown
}

// NotifyShutdown is the DAO's one-way migration signal. After it fires no
// new locks can be created, and every position may exit regardless of
// maturity.
func (l *Ledger) NotifyShutdown(caller types.AccountAddress) error {
	if !l.registry.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shutdown {
		return ErrShutdown
	}
	l.shutdown = true
	l.log.Info("vote escrow shutdown signalled")
	return nil
}

func (l *Ledger) bucketAdd(u *userLedger, epoch types.Epoch, amount *num.Uint) {
	if b, ok := u.unlocks[epoch]; ok {
		b.AddSum(amount)
	} else {
		u.unlocks[epoch] = amount.Clone()
	}
	if b, ok := l.chainUnlocks[epoch]; ok {
		b.AddSum(amount)
	} else {
		l.chainUnlocks[epoch] = amount.Clone()
	}
}

func (l *Ledger) bucketRemove(u *userLedger, epoch types.Epoch, amount *num.Uint) {
	if b, ok := u.unlocks[epoch]; ok {
		b.Sub(b, amount)
		if b.IsZero() {
			delete(u.unlocks, epoch)
		}
	}
	if b, ok := l.chainUnlocks[epoch]; ok {
		b.Sub(b, amount)
		if b.IsZero() {
			delete(l.chainUnlocks, epoch)
		}
	}
}

func (l *Ledger) emitLockUpdate(ctx context.Context, user types.AccountAddress, action events.LockAction, amount, points *num.Uint, continuous bool, unlock types.Epoch) {
	metrics.SetLockedTokens(l.totalLocked.ToDecimal().Div(num.DecimalWad()).InexactFloat64())
	l.broker.Send(events.NewLockUpdate(ctx, user, action, amount, points, continuous, unlock))
}

func (u *userLedger) lockAt(idx int) (*LockPosition, error) {
	if idx < 0 || idx >= len(u.locks) {
		return nil, ErrLockNotFound
	}
	return u.locks[idx], nil
}

func (u *userLedger) removeLock(idx int) {
	u.locks = append(u.locks[:idx], u.locks[idx+1:]...)
}
