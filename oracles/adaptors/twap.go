package adaptors

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/types"
	"code.curvance.io/curvance/types/num"
)

var (
	// ErrWindowBelowMinimum rejects TWAP windows short enough to be
	// manipulated with a couple of samples.
	ErrWindowBelowMinimum = errors.New("twap window is below the protocol minimum")
	// ErrNonMonotonicObservation is returned when an observation is
	// recorded out of order.
	ErrNonMonotonicObservation = errors.New("observation timestamps must be monotonically increasing")
	// ErrZeroObservation is returned for a zero priced observation.
	ErrZeroObservation = errors.New("observation price must not be zero")
)

// Observation is one on-chain price sample.
type Observation struct {
	Price *num.Uint
	Time  time.Time
}

// TWAPPoolConfig is the per asset configuration of a TWAP source.
type TWAPPoolConfig struct {
	// Window over which the average is taken. Validated against the
	// adaptor wide minimum at AddAsset time, never at quote time, so a
	// misconfiguration cannot sit silently behind healthy looking quotes.
	Window time.Duration
	// InUSD is the quote currency of the pool's price samples.
	InUSD bool
}

type twapSeries struct {
	cfg TWAPPoolConfig
	obs []Observation
}

// TWAPPool quotes assets from a time weighted average of recorded pool
// observations. Quoting fails closed when the history does not reach back
// a full window: the caller is told to record observations first rather
// than being handed a short window average.
type TWAPPool struct {
	log       *logging.Logger
	name      string
	perms     Permissions
	ts        TimeService
	minWindow time.Duration

	mu     sync.Mutex
	series map[types.AssetAddress]*twapSeries
}

// NewTWAPPool creates a TWAP pool adaptor. minWindow is the protocol
// minimum sampling window and must be at least one second, the average
// integrates in whole seconds.
func NewTWAPPool(log *logging.Logger, name string, perms Permissions, ts TimeService, minWindow time.Duration) (*TWAPPool, error) {
	if minWindow < time.Second {
		return nil, ErrWindowBelowMinimum
	}
	return &TWAPPool{
		log:       log.Named(name),
		name:      name,
		perms:     perms,
		ts:        ts,
		minWindow: minWindow,
		series:    map[types.AssetAddress]*twapSeries{},
	}, nil
}

func (t *TWAPPool) Name() string {
	return t.name
}

func (t *TWAPPool) Kind() Kind {
	return KindTWAPPool
}

func (t *TWAPPool) SupportsAsset(asset types.AssetAddress) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.series[asset]
	return ok
}

// AddAsset attaches a TWAP configuration to an asset.
func (t *TWAPPool) AddAsset(caller types.AccountAddress, asset types.AssetAddress, cfg TWAPPoolConfig) error {
	if !t.perms.HasElevatedPermissions(caller) {
		return ErrNotPermitted
	}
	if cfg.Window < t.minWindow {
		return ErrWindowBelowMinimum
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.series[asset]; ok {
		return ErrAssetAlreadyAdded
	}
	t.series[asset] = &twapSeries{cfg: cfg}
	return nil
}

// RemoveAsset detaches an asset and drops its observation history.
func (t *TWAPPool) RemoveAsset(caller types.AccountAddress, asset types.AssetAddress) error {
	if !t.perms.HasElevatedPermissions(caller) {
		return ErrNotPermitted
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.series[asset]; !ok {
		return ErrAssetNotSupported
	}
	delete(t.series, asset)
	return nil
}

// RecordObservation appends a price sample for an asset. Samples must
// arrive in time order. History older than the window is pruned, keeping
// one sample beyond the boundary so the window start stays covered.
func (t *TWAPPool) RecordObservation(asset types.AssetAddress, price *num.Uint, at time.Time) error {
	if price == nil || price.IsZero() {
		return ErrZeroObservation
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.series[asset]
	if !ok {
		return ErrAssetNotSupported
	}
	if n := len(s.obs); n > 0 && !s.obs[n-1].Time.Before(at) {
		return ErrNonMonotonicObservation
	}
	s.obs = append(s.obs, Observation{Price: price.Clone(), Time: at})
	s.prune(at.Add(-s.cfg.Window))
	return nil
}

// prune drops observations that ended before the cutoff. The most recent
// observation at or before the cutoff is kept, it still covers the start
// of the window.
func (s *twapSeries) prune(cutoff time.Time) {
	drop := 0
	for i := 1; i < len(s.obs); i++ {
		if !s.obs[i].Time.After(cutoff) {
			drop = i
		}
	}
	if drop > 0 {
		s.obs = append(s.obs[:0], s.obs[drop:]...)
	}
}

// Quote returns the window TWAP cross-checked against the newest sample:
// getLower picks the smaller of the two, the caller wanting a conservative
// debt valuation gets the larger.
func (t *TWAPPool) Quote(_ context.Context, asset types.AssetAddress, _, getLower bool) Quote {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.series[asset]
	if !ok {
		return errQuote(false, ErrAssetNotSupported)
	}

	now := t.ts.GetTimeNow()
	start := now.Add(-s.cfg.Window)
	if len(s.obs) == 0 || s.obs[0].Time.After(start) {
		// Oldest observation does not satisfy the window.
		return errQuote(s.cfg.InUSD, ErrInsufficientObservations)
	}

	twap := timeWeightedAverage(s.obs, start, now)
	if twap.IsZero() {
		return errQuote(s.cfg.InUSD, ErrInsufficientObservations)
	}

	spot := s.obs[len(s.obs)-1].Price
	price := num.Max(twap, spot)
	if getLower {
		price = num.Min(twap, spot)
	}
	return Quote{Price: price, InUSD: s.cfg.InUSD}
}

// timeWeightedAverage integrates a step function of observations over
// [start, end]. Each sample's price holds from its timestamp until the
// next sample, the last one holds until end.
func timeWeightedAverage(obs []Observation, start, end time.Time) *num.Uint {
	total := end.Sub(start)
	if total <= 0 {
		return num.UintZero()
	}
	weighted := num.UintZero()
	for i, o := range obs {
		from := o.Time
		if from.Before(start) {
			from = start
		}
		to := end
		if i+1 < len(obs) {
			to = obs[i+1].Time
		}
		if !to.After(from) {
			continue
		}
		seconds := num.NewUint(uint64(to.Sub(from) / time.Second))
		weighted.AddSum(num.UintZero().Mul(o.Price, seconds))
	}
	return num.UintZero().Div(weighted, num.NewUint(uint64(total/time.Second)))
}
