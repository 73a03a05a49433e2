package adaptors

import (
	"context"
	"errors"
	"sync"

	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

var (
	// ErrNilRateSource is returned when a pair is configured without a
	// rate source.
	ErrNilRateSource = errors.New("rate source must not be nil")
	// ErrInvalidRateBounds is returned when the band is empty or does not
	// straddle the peg.
	ErrInvalidRateBounds = errors.New("rate bounds must satisfy lower < 1e18 wad peg < upper")
	// ErrNilBaseAdaptor is returned when no underlying adaptor quotes the
	// base asset.
	ErrNilBaseAdaptor = errors.New("base adaptor must not be nil")
)

// RateSource reads the live exchange rate of the correlated asset in terms
// of its base (WAD scaled, 1e18 = exactly at peg).
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/rate_source_mock.go -package mocks code.curvance.io/curvance/oracles/adaptors RateSource
type RateSource interface {
	ExchangeRate() (*num.Uint, error)
}

// CorrelatedPairConfig is the per asset configuration of a correlated
// pair (e.g. a liquid staking token against its underlying).
type CorrelatedPairConfig struct {
	// Base is the asset whose price anchors the pair.
	Base types.AssetAddress
	// Rates reads the live exchange rate from the pool.
	Rates RateSource
	// LowerBound and UpperBound confine the accepted rate, WAD scaled.
	// A rate outside the band is the depeg/manipulation tripwire and
	// fails the quote hard.
	LowerBound *num.Uint
	UpperBound *num.Uint
}

func (c CorrelatedPairConfig) validate() error {
	if c.Rates == nil {
		return ErrNilRateSource
	}
	if c.LowerBound == nil || c.UpperBound == nil {
		return ErrInvalidRateBounds
	}
	if c.LowerBound.GTE(c.UpperBound) {
		return ErrInvalidRateBounds
	}
	wad := num.WAD()
	if c.LowerBound.GT(wad) || c.UpperBound.LT(wad) {
		return ErrInvalidRateBounds
	}
	return nil
}

// CorrelatedLP quotes assets that track a base asset through a live
// exchange rate, validating the rate against a configured band before
// using it. The band check runs on every quote, a manipulated pool can
// not push a bad rate through between admin reviews.
type CorrelatedLP struct {
	log   *logging.Logger
	name  string
	perms Permissions
	base  Adaptor

	mu    sync.Mutex
	pairs map[types.AssetAddress]CorrelatedPairConfig
}

// NewCorrelatedLP creates a correlated pair adaptor quoting through base.
func NewCorrelatedLP(log *logging.Logger, name string, perms Permissions, base Adaptor) (*CorrelatedLP, error) {
	if base == nil {
		return nil, ErrNilBaseAdaptor
	}
	return &CorrelatedLP{
		log:   log.Named(name),
		name:  name,
		perms: perms,
		base:  base,
		pairs: map[types.AssetAddress]CorrelatedPairConfig{},
	}, nil
}

func (c *CorrelatedLP) Name() string {
	return c.name
}

func (c *CorrelatedLP) Kind() Kind {
	return KindCorrelatedLP
}

func (c *CorrelatedLP) SupportsAsset(asset types.AssetAddress) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pairs[asset]
	return ok
}

// AddAsset attaches a correlated pair configuration to an asset.
func (c *CorrelatedLP) AddAsset(caller types.AccountAddress, asset types.AssetAddress, cfg CorrelatedPairConfig) error {
	if !c.perms.HasElevatedPermissions(caller) {
		return ErrNotPermitted
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	if !c.base.SupportsAsset(cfg.Base) {
		return ErrAssetNotSupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pairs[asset]; ok {
		return ErrAssetAlreadyAdded
	}
	c.pairs[asset] = cfg
	return nil
}

// RemoveAsset detaches an asset's pair configuration.
func (c *CorrelatedLP) RemoveAsset(caller types.AccountAddress, asset types.AssetAddress) error {
	if !c.perms.HasElevatedPermissions(caller) {
		return ErrNotPermitted
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pairs[asset]; !ok {
		return ErrAssetNotSupported
	}
	delete(c.pairs, asset)
	return nil
}

// Quote prices the pair as base price times the live rate. getLower caps
// the rate at the peg so collateral valuations never benefit from a
// premium over the underlying.
func (c *CorrelatedLP) Quote(ctx context.Context, asset types.AssetAddress, inUSD, getLower bool) Quote {
	c.mu.Lock()
	cfg, ok := c.pairs[asset]
	c.mu.Unlock()
	if !ok {
		return errQuote(false, ErrAssetNotSupported)
	}

	base := c.base.Quote(ctx, cfg.Base, inUSD, getLower)
	if base.HadError {
		return errQuote(base.InUSD, base.Reason)
	}

	rate, err := cfg.Rates.ExchangeRate()
	if err != nil {
		c.log.Debug("rate source read failed",
			logging.String("asset", asset.Hex()),
			logging.Error(err),
		)
		return errQuote(base.InUSD, err)
	}
	if rate.LT(cfg.LowerBound) || rate.GT(cfg.UpperBound) {
		c.log.Warn("correlated pair rate outside band",
			logging.String("asset", asset.Hex()),
			logging.String("rate", rate.String()),
		)
		return errQuote(base.InUSD, ErrRateOutsideBounds)
	}

	if getLower {
		rate = num.Min(rate, num.WAD())
	}
	return Quote{
		Price: num.WadMul(base.Price, rate),
		InUSD: base.InUSD,
	}
}
