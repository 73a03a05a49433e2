// Package collateral is the token account engine: reward pools, gauge
// funding and user balances live here, and every value transfer the other
// engines make goes through it. External swaps are executed through an
// injected Swapper but validated here: allow-listed target, minimum
// output, balances settled only after the external call succeeded.
package collateral

import (
	"context"
	"errors"
	"sync"

	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the account
	// balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrZeroAmount is returned for zero value operations.
	ErrZeroAmount = errors.New("amount must not be zero")
	// ErrNotPermitted is returned when the caller lacks DAO permissions.
	ErrNotPermitted = errors.New("caller lacks permissions for this operation")
	// ErrSwapTargetNotApproved is returned when the swap descriptor's
	// target is not on the allow-list.
	ErrSwapTargetNotApproved = errors.New("swap target is not approved")
	// ErrSwapSlippage is returned when the swap output is below the
	// caller's minimum.
	ErrSwapSlippage = errors.New("swap output below minimum")
	// ErrNilSwapper is returned when a swap is requested but no swapper
	// was injected.
	ErrNilSwapper = errors.New("no swap executor configured")
)

// Permissions gates the swap target allow-list.
type Permissions interface {
	HasDAOPermissions(addr types.AccountAddress) bool
}

// Swapper executes a swap descriptor against an external venue and
// returns the amount of the output asset produced.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/swapper_mock.go -package mocks code.curvance.io/curvance/collateral Swapper
type Swapper interface {
	Swap(ctx context.Context, desc types.SwapDescriptor, amountIn *num.Uint) (*num.Uint, error)
}

type accountKey struct {
	owner types.AccountAddress
	asset types.AssetAddress
}

// rewardPoolOwner derives the deterministic owner address of an asset's
// reward pool account.
func rewardPoolOwner(asset types.AssetAddress) types.AccountAddress {
	var owner types.AccountAddress
	copy(owner[:], asset[:])
	owner[0] ^= 0xc5
	return owner
}

// Engine holds all protocol token accounts.
type Engine struct {
	log    *logging.Logger
	config Config

	mu          sync.Mutex
	perms       Permissions
	swapper     Swapper
	accounts    map[accountKey]*num.Uint
	swapTargets map[types.AccountAddress]struct{}
}

// New instantiates the collateral engine. swapper may be nil when swaps
// are not needed (tests, chains without an approved aggregator).
func New(log *logging.Logger, config Config, perms Permissions, swapper Swapper) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:         log,
		config:      config,
		perms:       perms,
		swapper:     swapper,
		accounts:    map[accountKey]*num.Uint{},
		swapTargets: map[types.AccountAddress]struct{}{},
	}
}

// Balance returns a copy of the account balance, zero for unknown
// accounts.
func (e *Engine) Balance(owner types.AccountAddress, asset types.AssetAddress) *num.Uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance(owner, asset).Clone()
}

func (e *Engine) balance(owner types.AccountAddress, asset types.AssetAddress) *num.Uint {
	if b, ok := e.accounts[accountKey{owner, asset}]; ok {
		return b
	}
	return num.UintZero()
}

// Deposit credits an account.
func (e *Engine) Deposit(owner types.AccountAddress, asset types.AssetAddress, amount *num.Uint) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.credit(owner, asset, amount)
	return nil
}

// Withdraw debits an account.
func (e *Engine) Withdraw(owner types.AccountAddress, asset types.AssetAddress, amount *num.Uint) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debit(owner, asset, amount)
}

// Transfer moves amount between two accounts atomically.
func (e *Engine) Transfer(from, to types.AccountAddress, asset types.AssetAddress, amount *num.Uint) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.debit(from, asset, amount); err != nil {
		return err
	}
	e.credit(to, asset, amount)
	return nil
}

func (e *Engine) credit(owner types.AccountAddress, asset types.AssetAddress, amount *num.Uint) {
	key := accountKey{owner, asset}
	if b, ok := e.accounts[key]; ok {
		b.AddSum(amount)
		return
	}
	e.accounts[key] = amount.Clone()
}

func (e *Engine) debit(owner types.AccountAddress, asset types.AssetAddress, amount *num.Uint) error {
	key := accountKey{owner, asset}
	b, ok := e.accounts[key]
	if !ok || b.LT(amount) {
		return ErrInsufficientBalance
	}
	b.Sub(b, amount)
	return nil
}

// CreateOrGetRewardPoolAccount returns the owner address of the asset's
// reward pool, creating the account on first use.
func (e *Engine) CreateOrGetRewardPoolAccount(asset types.AssetAddress) types.AccountAddress {
	owner := rewardPoolOwner(asset)
	e.mu.Lock()
	defer e.mu.Unlock()
	key := accountKey{owner, asset}
	if _, ok := e.accounts[key]; !ok {
		e.accounts[key] = num.UintZero()
	}
	return owner
}

// ApproveSwapTarget adds a venue to the swap allow-list.
func (e *Engine) ApproveSwapTarget(caller, target types.AccountAddress) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.swapTargets[target] = struct{}{}
	return nil
}

// RevokeSwapTarget removes a venue from the swap allow-list.
func (e *Engine) RevokeSwapTarget(caller, target types.AccountAddress) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.swapTargets, target)
	return nil
}

// ExecuteSwap swaps owner's input asset through an approved venue. The
// core validates only the allow-list and the output minimum, routing is
// the venue's business. Balances move only after the external call
// succeeded, and the engine lock is held throughout so no other entry
// point can observe the half-done state.
func (e *Engine) ExecuteSwap(ctx context.Context, owner types.AccountAddress, desc types.SwapDescriptor, amountIn, minOut *num.Uint) (*num.Uint, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.swapper == nil {
		return nil, ErrNilSwapper
	}
	if _, ok := e.swapTargets[desc.Target]; !ok {
		return nil, ErrSwapTargetNotApproved
	}
	if e.balance(owner, desc.InputAsset).LT(amountIn) {
		return nil, ErrInsufficientBalance
	}

	out, err := e.swapper.Swap(ctx, desc, amountIn)
	if err != nil {
		return nil, err
	}
	if minOut != nil && out.LT(minOut) {
		e.log.Warn("swap output below minimum",
			logging.String("target", desc.Target.Hex()),
			logging.String("out", out.String()),
			logging.String("minOut", minOut.String()),
		)
		return nil, ErrSwapSlippage
	}

	if err := e.debit(owner, desc.InputAsset, amountIn); err != nil {
		return nil, err
	}
	e.credit(owner, desc.OutputAsset, out)
	return out.Clone(), nil
}
