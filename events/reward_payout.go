package events

import (
	"context"

	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

// RewardPayout is emitted once per successful claim, covering the whole
// contiguous run of epochs settled by that claim.
type RewardPayout struct {
	*Base
	User       types.AccountAddress
	Asset      types.AssetAddress
	Amount     *num.Uint
	FirstEpoch types.Epoch
	LastEpoch  types.Epoch
	Locked     bool
}

func NewRewardPayout(ctx context.Context, user types.AccountAddress, asset types.AssetAddress, amount *num.Uint, first, last types.Epoch, locked bool) *RewardPayout {
	return &RewardPayout{
		Base:       newBase(ctx, RewardPayoutEvent),
		User:       user,
		Asset:      asset,
		Amount:     amount.Clone(),
		FirstEpoch: first,
		LastEpoch:  last,
		Locked:     locked,
	}
}
