// Package adaptors wraps external price sources behind a uniform quote
// contract. Every adaptor normalizes to WAD fixed point and reports
// recoverable failures through the HadError flag instead of failing the
// whole query, so the router can apply its degradation policy.
package adaptors

import (
	"context"
	"errors"
	"time"

	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

var (
	// ErrAssetNotSupported is returned when operating on an asset the
	// adaptor has no configuration for.
	ErrAssetNotSupported = errors.New("asset is not supported by this adaptor")
	// ErrAssetAlreadyAdded is returned when adding an asset twice.
	ErrAssetAlreadyAdded = errors.New("asset is already configured")
	// ErrNotPermitted is returned when the caller lacks DAO permissions.
	ErrNotPermitted = errors.New("caller lacks permissions for this operation")
	// ErrStaleRound signals the source's last update is older than its
	// heartbeat.
	ErrStaleRound = errors.New("latest round is stale")
	// ErrAnswerOutsideBounds signals the raw answer violated the
	// configured min/max for the source.
	ErrAnswerOutsideBounds = errors.New("answer is outside configured bounds")
	// ErrInsufficientObservations signals the observation history does not
	// reach back a full window. The fix is operational: record more
	// observations before quoting.
	ErrInsufficientObservations = errors.New("observation history does not cover the window, record more observations first")
	// ErrRateOutsideBounds signals a correlated pair's live exchange rate
	// left the configured band around the peg.
	ErrRateOutsideBounds = errors.New("exchange rate is outside the configured band")
)

// Kind is the closed set of adaptor implementations. The router resolves
// capability at configuration time from this tag, there is no runtime
// introspection.
type Kind int

const (
	KindReferenceFeed Kind = iota
	KindTWAPPool
	KindCorrelatedLP
)

func (k Kind) String() string {
	switch k {
	case KindReferenceFeed:
		return "reference-feed"
	case KindTWAPPool:
		return "twap-pool"
	case KindCorrelatedLP:
		return "correlated-lp"
	default:
		return "unknown"
	}
}

// Quote is one adaptor's answer. Price is WAD scaled. InUSD reports the
// quote currency of the source, which may differ from the one requested;
// the router reconciles currencies. When HadError is set the price must
// not be consumed and Reason carries the diagnostic.
type Quote struct {
	Price    *num.Uint
	HadError bool
	InUSD    bool
	Reason   error
}

func errQuote(inUSD bool, reason error) Quote {
	return Quote{Price: num.UintZero(), HadError: true, InUSD: inUSD, Reason: reason}
}

// Adaptor is the uniform price source contract.
type Adaptor interface {
	Name() string
	Kind() Kind
	SupportsAsset(asset types.AssetAddress) bool
	Quote(ctx context.Context, asset types.AssetAddress, inUSD, getLower bool) Quote
}

// Permissions gates administrative mutation of adaptor configuration.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/permissions_mock.go -package mocks code.curvance.io/curvance/oracles/adaptors Permissions
type Permissions interface {
	HasDAOPermissions(addr types.AccountAddress) bool
	HasElevatedPermissions(addr types.AccountAddress) bool
}

// TimeService provides the current chain time.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/time_service_mock.go -package mocks code.curvance.io/curvance/oracles/adaptors TimeService
type TimeService interface {
	GetTimeNow() time.Time
}

// scaleToWad rescales a raw source answer with the given decimals to WAD.
func scaleToWad(answer *num.Uint, decimals uint32) *num.Uint {
	if decimals == 18 {
		return answer.Clone()
	}
	unit := num.NewUint(10)
	exp := num.UintZero().Set(num.UintOne())
	for i := uint32(0); i < decimals; i++ {
		exp.Mul(exp, unit)
	}
	r, _ := num.MulDiv(answer, num.WAD(), exp)
	return r
}
