package types

import (
	"code.curvance.io/curvance/types/num"
)

// PriceErrorCode grades the quality of a price quote. Consumers choose
// their own tolerance: solvency checks treat anything at or above their
// breakpoint as fatal, display paths may accept caution quotes.
type PriceErrorCode uint8

const (
	// PriceOK means two independent sources agreed within tolerance.
	PriceOK PriceErrorCode = 0
	// PriceCaution means a usable price exists but it could not be fully
	// cross-checked: a single configured source, a divergence beyond
	// tolerance, or stale but still recent data.
	PriceCaution PriceErrorCode = 1
	// PriceHard means no usable price exists. The quote's price field is
	// zero and must not be consumed.
	PriceHard PriceErrorCode = 2
)

func (c PriceErrorCode) String() string {
	switch c {
	case PriceOK:
		return "ok"
	case PriceCaution:
		return "caution"
	case PriceHard:
		return "hard"
	default:
		return "unknown"
	}
}

// PriceQuote is the result of a router price query, WAD scaled.
type PriceQuote struct {
	Price *num.Uint
	Code  PriceErrorCode
	InUSD bool
}

// Usable returns whether the quote carries a consumable price.
func (q PriceQuote) Usable() bool {
	return q.Code != PriceHard
}

// HardQuote returns the canonical unusable quote.
func HardQuote(inUSD bool) PriceQuote {
	return PriceQuote{Price: num.UintZero(), Code: PriceHard, InUSD: inUSD}
}
