package events

import (
	"context"

	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

// PriceUpdate reports the outcome of a router price query, including
// degraded ones, so downstream consumers can track feed quality over time.
type PriceUpdate struct {
	*Base
	Asset types.AssetAddress
	Price *num.Uint
	Code  types.PriceErrorCode
	InUSD bool
}

func NewPriceUpdate(ctx context.Context, asset types.AssetAddress, quote types.PriceQuote) *PriceUpdate {
	return &PriceUpdate{
		Base:  newBase(ctx, PriceUpdateEvent),
		Asset: asset,
		Price: quote.Price.Clone(),
		Code:  quote.Code,
		InUSD: quote.InUSD,
	}
}
