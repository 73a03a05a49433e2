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
	// ErrNilRoundReader is returned when a feed is configured without a
	// source.
	ErrNilRoundReader = errors.New("round reader must not be nil")
	// ErrInvalidHeartbeat is returned for a zero or negative heartbeat.
	ErrInvalidHeartbeat = errors.New("heartbeat must be positive")
	// ErrInvalidAnswerBounds is returned when min >= max.
	ErrInvalidAnswerBounds = errors.New("min answer must be below max answer")
)

// RoundReader reads the latest round of one external reference feed
// (a Chainlink style aggregator).
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/round_reader_mock.go -package mocks code.curvance.io/curvance/oracles/adaptors RoundReader
type RoundReader interface {
	LatestRound() (answer *num.Uint, updatedAt time.Time, err error)
}

// ReferenceFeedConfig is the per asset configuration of a reference feed.
type ReferenceFeedConfig struct {
	Reader RoundReader
	// Decimals of the raw source answer.
	Decimals uint32
	// Heartbeat is the maximum age of the latest round before it is
	// considered stale.
	Heartbeat time.Duration
	// MinAnswer/MaxAnswer bound the raw answer. A zero MaxAnswer means
	// unbounded above.
	MinAnswer *num.Uint
	MaxAnswer *num.Uint
	// InUSD is the quote currency of the source.
	InUSD bool
}

func (c ReferenceFeedConfig) validate() error {
	if c.Reader == nil {
		return ErrNilRoundReader
	}
	if c.Heartbeat <= 0 {
		return ErrInvalidHeartbeat
	}
	if c.MinAnswer != nil && c.MaxAnswer != nil && !c.MaxAnswer.IsZero() && c.MinAnswer.GTE(c.MaxAnswer) {
		return ErrInvalidAnswerBounds
	}
	return nil
}

// ReferenceFeed quotes assets from push based reference aggregators. A
// stale round, a zero answer or an answer outside the configured bounds
// degrades to HadError, it never aborts the query.
type ReferenceFeed struct {
	log   *logging.Logger
	name  string
	perms Permissions
	ts    TimeService

	mu    sync.Mutex
	feeds map[types.AssetAddress]ReferenceFeedConfig
}

// NewReferenceFeed creates a reference feed adaptor.
func NewReferenceFeed(log *logging.Logger, name string, perms Permissions, ts TimeService) *ReferenceFeed {
	return &ReferenceFeed{
		log:   log.Named(name),
		name:  name,
		perms: perms,
		ts:    ts,
		feeds: map[types.AssetAddress]ReferenceFeedConfig{},
	}
}

func (r *ReferenceFeed) Name() string {
	return r.name
}

func (r *ReferenceFeed) Kind() Kind {
	return KindReferenceFeed
}

func (r *ReferenceFeed) SupportsAsset(asset types.AssetAddress) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.feeds[asset]
	return ok
}

// AddAsset attaches a feed configuration to an asset.
func (r *ReferenceFeed) AddAsset(caller types.AccountAddress, asset types.AssetAddress, cfg ReferenceFeedConfig) error {
	if !r.perms.HasElevatedPermissions(caller) {
		return ErrNotPermitted
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.feeds[asset]; ok {
		return ErrAssetAlreadyAdded
	}
	r.feeds[asset] = cfg
	return nil
}

// RemoveAsset detaches an asset's feed configuration.
func (r *ReferenceFeed) RemoveAsset(caller types.AccountAddress, asset types.AssetAddress) error {
	if !r.perms.HasElevatedPermissions(caller) {
		return ErrNotPermitted
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.feeds[asset]; !ok {
		return ErrAssetNotSupported
	}
	delete(r.feeds, asset)
	return nil
}

// Quote reads and validates the latest round, normalized to WAD. The
// getLower flag has no effect for a single sided source.
func (r *ReferenceFeed) Quote(_ context.Context, asset types.AssetAddress, _, _ bool) Quote {
	r.mu.Lock()
	cfg, ok := r.feeds[asset]
	r.mu.Unlock()
	if !ok {
		return errQuote(false, ErrAssetNotSupported)
	}

	answer, updatedAt, err := cfg.Reader.LatestRound()
	if err != nil {
		r.log.Debug("reference feed read failed",
			logging.String("asset", asset.Hex()),
			logging.Error(err),
		)
		return errQuote(cfg.InUSD, err)
	}
	if answer == nil || answer.IsZero() {
		return errQuote(cfg.InUSD, ErrAnswerOutsideBounds)
	}
	if r.ts.GetTimeNow().Sub(updatedAt) > cfg.Heartbeat {
		return errQuote(cfg.InUSD, ErrStaleRound)
	}
	if cfg.MinAnswer != nil && answer.LT(cfg.MinAnswer) {
		return errQuote(cfg.InUSD, ErrAnswerOutsideBounds)
	}
	if cfg.MaxAnswer != nil && !cfg.MaxAnswer.IsZero() && answer.GT(cfg.MaxAnswer) {
		return errQuote(cfg.InUSD, ErrAnswerOutsideBounds)
	}

	return Quote{
		Price: scaleToWad(answer, cfg.Decimals),
		InUSD: cfg.InUSD,
	}
}
