package events

import (
	"context"

	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

type LockAction int

const (
	LockCreated LockAction = iota
	LockIncreased
	LockExtended
	LockProcessed
	LockDecayed
	LockContinuousDisabled
)

// LockUpdate is emitted whenever a user's vote escrow position changes.
type LockUpdate struct {
	*Base
	User       types.AccountAddress
	Action     LockAction
	Amount     *num.Uint
	Points     *num.Uint
	Continuous bool
	Unlock     types.Epoch
}

func NewLockUpdate(ctx context.Context, user types.AccountAddress, action LockAction, amount, points *num.Uint, continuous bool, unlock types.Epoch) *LockUpdate {
	return &LockUpdate{
		Base:       newBase(ctx, LockUpdateEvent),
		User:       user,
		Action:     action,
		Amount:     amount.Clone(),
		Points:     points.Clone(),
		Continuous: continuous,
		Unlock:     unlock,
	}
}
