// Package oracles holds the price router: the single price query surface
// for every protocol consumer. It aggregates at most two adaptors per
// asset, reconciles their answers and grades the result instead of
// guessing when sources disagree.
package oracles

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.curvance.io/curvance/events"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/metrics"
	"code.curvance.io/curvance/oracles/adaptors"
	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"

	lru "github.com/hashicorp/golang-lru"
)

var (
	// ErrNotPermitted is returned when the caller lacks DAO permissions.
	ErrNotPermitted = errors.New("caller lacks permissions for this operation")
	// ErrAdaptorNotApproved is returned when attaching or removing an
	// adaptor outside the allow-list.
	ErrAdaptorNotApproved = errors.New("adaptor is not on the approved list")
	// ErrAdaptorAlreadyApproved is returned when approving twice.
	ErrAdaptorAlreadyApproved = errors.New("adaptor is already approved")
	// ErrAssetNotSupportedByAdaptor is returned when attaching a feed for
	// an asset the adaptor has no configuration for.
	ErrAssetNotSupportedByAdaptor = errors.New("adaptor does not support this asset")
	// ErrTooManyFeeds enforces the two feeds per asset policy.
	ErrTooManyFeeds = errors.New("asset already has the maximum of two feeds")
	// ErrFeedAlreadyAttached is returned when attaching a feed twice.
	ErrFeedAlreadyAttached = errors.New("feed is already attached to this asset")
	// ErrFeedNotAttached is returned when removing a feed that is not
	// attached.
	ErrFeedNotAttached = errors.New("feed is not attached to this asset")
	// ErrInvalidTolerance rejects divergence tolerances outside (0,1).
	ErrInvalidTolerance = errors.New("divergence tolerance must be in (0,1)")
	// ErrPriceAboveBreakpoint aborts a whole solvency batch when a single
	// asset's quote grade reaches the caller's breakpoint.
	ErrPriceAboveBreakpoint = errors.New("price error code at or above the caller's breakpoint")
)

// maxFeedsPerAsset is router policy, not a tunable.
const maxFeedsPerAsset = 2

// Permissions gates administrative mutation.
type Permissions interface {
	HasDAOPermissions(addr types.AccountAddress) bool
	HasElevatedPermissions(addr types.AccountAddress) bool
}

// TimeService provides the current chain time.
type TimeService interface {
	GetTimeNow() time.Time
}

// Broker is the event bus.
type Broker interface {
	Send(e events.Event)
}

// SequencerFeed reports L2 sequencer uptime. Status returns whether the
// sequencer is up and since when that has been the case.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/sequencer_feed_mock.go -package mocks code.curvance.io/curvance/oracles SequencerFeed
type SequencerFeed interface {
	Status() (up bool, since time.Time, err error)
}

// MarketQuoteRequest is one entry of a solvency batch.
type MarketQuoteRequest struct {
	Asset    types.AssetAddress
	InUSD    bool
	GetLower bool
}

// Engine is the oracle price router.
type Engine struct {
	log    *logging.Logger
	config Config

	mu        sync.Mutex
	perms     Permissions
	ts        TimeService
	broker    Broker
	sequencer SequencerFeed

	approved map[string]adaptors.Adaptor
	feeds    map[types.AssetAddress][]adaptors.Adaptor

	tolerance num.Decimal
	cache     *lru.Cache
}

// New instantiates the price router. sequencer may be nil on chains with no
// sequencer uptime feed.
func New(log *logging.Logger, config Config, perms Permissions, ts TimeService, broker Broker, sequencer SequencerFeed) (*Engine, error) {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	if !config.DivergenceTolerance.IsPositive() || config.DivergenceTolerance.GreaterThanOrEqual(num.DecimalOne()) {
		return nil, ErrInvalidTolerance
	}

	cache, err := lru.New(config.QuoteCacheSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		log:       log,
		config:    config,
		perms:     perms,
		ts:        ts,
		broker:    broker,
		sequencer: sequencer,
		approved:  map[string]adaptors.Adaptor{},
		feeds:     map[types.AssetAddress][]adaptors.Adaptor{},
		tolerance: config.DivergenceTolerance,
		cache:     cache,
	}, nil
}

// AddApprovedAdaptor adds an adaptor to the allow-list. Only approved
// adaptors can ever be attached to an asset.
func (e *Engine) AddApprovedAdaptor(caller types.AccountAddress, a adaptors.Adaptor) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.approved[a.Name()]; ok {
		return ErrAdaptorAlreadyApproved
	}
	e.approved[a.Name()] = a
	e.log.Info("adaptor approved",
		logging.String("adaptor", a.Name()),
		logging.String("kind", a.Kind().String()),
	)
	return nil
}

// RemoveApprovedAdaptor removes an adaptor from the allow-list and
// detaches it from every asset it was serving.
func (e *Engine) RemoveApprovedAdaptor(caller types.AccountAddress, name string) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.approved[name]; !ok {
		return ErrAdaptorNotApproved
	}
	delete(e.approved, name)
	for asset, list := range e.feeds {
		kept := list[:0]
		for _, a := range list {
			if a.Name() != name {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(e.feeds, asset)
			continue
		}
		e.feeds[asset] = kept
	}
	e.log.Info("adaptor removed", logging.String("adaptor", name))
	return nil
}

// AddAssetPriceFeed attaches an approved adaptor to an asset, at most two
// per asset.
func (e *Engine) AddAssetPriceFeed(caller types.AccountAddress, asset types.AssetAddress, adaptorName string) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.approved[adaptorName]
	if !ok {
		return ErrAdaptorNotApproved
	}
	if !a.SupportsAsset(asset) {
		return ErrAssetNotSupportedByAdaptor
	}
	list := e.feeds[asset]
	if len(list) >= maxFeedsPerAsset {
		return ErrTooManyFeeds
	}
	for _, f := range list {
		if f.Name() == adaptorName {
			return ErrFeedAlreadyAttached
		}
	}
	e.feeds[asset] = append(list, a)
	return nil
}

// RemoveAssetPriceFeed detaches an adaptor from an asset.
func (e *Engine) RemoveAssetPriceFeed(caller types.AccountAddress, asset types.AssetAddress, adaptorName string) error {
	if !e.perms.HasDAOPermissions(caller) {
		return ErrNotPermitted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.feeds[asset]
	for i, f := range list {
		if f.Name() == adaptorName {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(e.feeds, asset)
			} else {
				e.feeds[asset] = list
			}
			return nil
		}
	}
	return ErrFeedNotAttached
}

// IsSupportedAsset reports whether at least one feed is attached.
func (e *Engine) IsSupportedAsset(asset types.AssetAddress) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.feeds[asset]) > 0
}

// IsSequencerValid reports whether prices can be trusted on an L2: the
// sequencer must be up and must have been up for the full grace window.
// Callers on chains without a sequencer feed always get true. The gate is
// deliberately separate from GetPrice so the failure mode stays observable.
func (e *Engine) IsSequencerValid() bool {
	if e.sequencer == nil {
		return true
	}
	up, since, err := e.sequencer.Status()
	if err != nil || !up {
		return false
	}
	return e.ts.GetTimeNow().Sub(since) >= e.config.SequencerGracePeriod.Get()
}

// GetPrice quotes one asset. The result is always tagged: 0 feeds is a
// hard failure, a single healthy source is caution (no cross-check was
// possible), two sources within tolerance is ok, divergent sources is
// caution with the min or max per getLower.
func (e *Engine) GetPrice(ctx context.Context, asset types.AssetAddress, inUSD, getLower bool) types.PriceQuote {
	defer metrics.StartEngineTime(namedLogger, "GetPrice")()

	e.mu.Lock()
	list := make([]adaptors.Adaptor, len(e.feeds[asset]))
	copy(list, e.feeds[asset])
	e.mu.Unlock()

	quote := e.resolve(ctx, list, asset, inUSD, getLower)

	metrics.PriceQueryInc(quote.Code.String())
	e.broker.Send(events.NewPriceUpdate(ctx, asset, quote))
	if quote.Usable() {
		e.cache.Add(asset, quote)
	}
	return quote
}

func (e *Engine) resolve(ctx context.Context, list []adaptors.Adaptor, asset types.AssetAddress, inUSD, getLower bool) types.PriceQuote {
	if len(list) == 0 {
		return types.HardQuote(inUSD)
	}

	q1 := list[0].Quote(ctx, asset, inUSD, getLower)
	if len(list) == 1 {
		if q1.HadError {
			e.log.Debug("sole feed errored",
				logging.String("asset", asset.Hex()),
				logging.Error(q1.Reason),
			)
			return types.HardQuote(q1.InUSD)
		}
		// A single source can never be cross-checked, so by policy it is
		// never better than caution.
		return types.PriceQuote{Price: q1.Price, Code: types.PriceCaution, InUSD: q1.InUSD}
	}

	q2 := list[1].Quote(ctx, asset, inUSD, getLower)
	switch {
	case q1.HadError && q2.HadError:
		return types.HardQuote(q1.InUSD)
	case q2.HadError:
		return types.PriceQuote{Price: q1.Price, Code: types.PriceCaution, InUSD: q1.InUSD}
	case q1.HadError:
		return types.PriceQuote{Price: q2.Price, Code: types.PriceCaution, InUSD: q2.InUSD}
	}

	if q1.InUSD != q2.InUSD {
		// Different quote currencies cannot be compared, treat the
		// primary as a sole source.
		return types.PriceQuote{Price: q1.Price, Code: types.PriceCaution, InUSD: q1.InUSD}
	}

	price := num.Max(q1.Price, q2.Price)
	if getLower {
		price = num.Min(q1.Price, q2.Price)
	}

	if divergence(q1.Price, q2.Price).GreaterThan(e.tolerance) {
		e.log.Debug("feeds diverged beyond tolerance",
			logging.String("asset", asset.Hex()),
			logging.String("feedA", q1.Price.String()),
			logging.String("feedB", q2.Price.String()),
		)
		return types.PriceQuote{Price: price, Code: types.PriceCaution, InUSD: q1.InUSD}
	}
	return types.PriceQuote{Price: price, Code: types.PriceOK, InUSD: q1.InUSD}
}

// divergence is |a-b| relative to the smaller of the two.
func divergence(a, b *num.Uint) num.Decimal {
	lo, hi := a, b
	if lo.GT(hi) {
		lo, hi = hi, lo
	}
	if lo.IsZero() {
		return num.DecimalOne()
	}
	diff := num.UintZero().Sub(hi, lo)
	return diff.ToDecimal().Div(lo.ToDecimal())
}

// GetPrices quotes a batch, preserving per asset error codes: one bad
// asset never fails the whole batch.
func (e *Engine) GetPrices(ctx context.Context, assets []types.AssetAddress, inUSD, getLower bool) []types.PriceQuote {
	out := make([]types.PriceQuote, 0, len(assets))
	for _, asset := range assets {
		out = append(out, e.GetPrice(ctx, asset, inUSD, getLower))
	}
	return out
}

// GetPricesForMarket is the solvency batch. Unlike GetPrices it aborts the
// entire computation as soon as any quote's grade reaches breakpoint: a
// wrong price during a borrow or liquidation check is a safety failure,
// not a degrade-gracefully case.
func (e *Engine) GetPricesForMarket(ctx context.Context, account types.AccountAddress, reqs []MarketQuoteRequest, breakpoint types.PriceErrorCode) ([]types.PriceQuote, error) {
	out := make([]types.PriceQuote, 0, len(reqs))
	for _, req := range reqs {
		q := e.GetPrice(ctx, req.Asset, req.InUSD, req.GetLower)
		if q.Code >= breakpoint {
			e.log.Warn("solvency batch aborted on degraded price",
				logging.String("account", account.Hex()),
				logging.String("asset", req.Asset.Hex()),
				logging.String("code", q.Code.String()),
			)
			return nil, ErrPriceAboveBreakpoint
		}
		out = append(out, q)
	}
	return out, nil
}

// LastQuote returns the most recent usable quote seen for the asset. This
// is a display/estimate convenience, solvency logic must always go through
// GetPrice.
func (e *Engine) LastQuote(asset types.AssetAddress) (types.PriceQuote, bool) {
	v, ok := e.cache.Get(asset)
	if !ok {
		return types.PriceQuote{}, false
	}
	return v.(types.PriceQuote), true
}
