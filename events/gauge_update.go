package events

import (
	"context"

	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

type GaugeAction int

const (
	GaugeDeposit GaugeAction = iota
	GaugeWithdraw
	GaugeClaim
)

// GaugeUpdate is emitted on gauge deposits, withdrawals and claims.
type GaugeUpdate struct {
	*Base
	Pool   types.AssetAddress
	User   types.AccountAddress
	Action GaugeAction
	Amount *num.Uint
}

func NewGaugeUpdate(ctx context.Context, pool types.AssetAddress, user types.AccountAddress, action GaugeAction, amount *num.Uint) *GaugeUpdate {
	return &GaugeUpdate{
		Base:   newBase(ctx, GaugeUpdateEvent),
		Pool:   pool,
		User:   user,
		Action: action,
		Amount: amount.Clone(),
	}
}
