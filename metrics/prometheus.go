package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// abstract prometheus types
type instrument int

const (
	// Gauge ...
	Gauge instrument = iota
	// Counter ...
	Counter
	// Histogram ...
	Histogram
)

var (
	// ErrInstrumentNotSupported signals the specified instrument is not yet supported.
	ErrInstrumentNotSupported = errors.New("instrument type unsupported")
	// ErrInstrumentTypeMismatch signals the type of the instrument is not expected.
	ErrInstrumentTypeMismatch = errors.New("instrument is not of the expected type")
)

var (
	priceQueryCounter  *prometheus.CounterVec
	claimCounter       prometheus.Counter
	gaugeSettleCounter *prometheus.CounterVec
	lockedTokensGauge  prometheus.Gauge
	engineTime         *prometheus.CounterVec
)

// combine all possible prometheus options + way to differentiate between regular or vector type
type instrumentOpts struct {
	opts    prometheus.Opts
	buckets []float64
	vectors []string
}

type mi struct {
	gaugeV     *prometheus.GaugeVec
	gauge      prometheus.Gauge
	counterV   *prometheus.CounterVec
	counter    prometheus.Counter
	histogramV *prometheus.HistogramVec
	histogram  prometheus.Histogram
}

// InstrumentOption - vararg for instrument options setting.
type InstrumentOption func(o *instrumentOpts)

// Vectors - configuration used to create a vector of a given interface, slice of label names.
func Vectors(labels ...string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.vectors = labels
	}
}

// Help - set the help field on instrument.
func Help(help string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Help = help
	}
}

// Namespace - set namespace.
func Namespace(ns string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Namespace = ns
	}
}

// Buckets - specific to histogram type.
func Buckets(b []float64) InstrumentOption {
	return func(o *instrumentOpts) {
		o.buckets = b
	}
}

// AddInstrument configures and registers a new metrics instrument.
func AddInstrument(t instrument, name string, opts ...InstrumentOption) (*mi, error) {
	var col prometheus.Collector
	ret := mi{}
	opt := instrumentOpts{
		opts: prometheus.Opts{
			Name: name,
		},
	}
	for _, o := range opts {
		o(&opt)
	}
	switch t {
	case Gauge:
		o := opt.gauge()
		if len(opt.vectors) == 0 {
			ret.gauge = prometheus.NewGauge(o)
			col = ret.gauge
		} else {
			ret.gaugeV = prometheus.NewGaugeVec(o, opt.vectors)
			col = ret.gaugeV
		}
	case Counter:
		o := opt.counter()
		if len(opt.vectors) == 0 {
			ret.counter = prometheus.NewCounter(o)
			col = ret.counter
		} else {
			ret.counterV = prometheus.NewCounterVec(o, opt.vectors)
			col = ret.counterV
		}
	case Histogram:
		o := opt.histogram()
		if len(opt.vectors) == 0 {
			ret.histogram = prometheus.NewHistogram(o)
			col = ret.histogram
		} else {
			ret.histogramV = prometheus.NewHistogramVec(o, opt.vectors)
			col = ret.histogramV
		}
	default:
		return nil, ErrInstrumentNotSupported
	}
	if err := prometheus.Register(col); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (i instrumentOpts) gauge() prometheus.GaugeOpts {
	return prometheus.GaugeOpts(i.opts)
}

func (i instrumentOpts) counter() prometheus.CounterOpts {
	return prometheus.CounterOpts(i.opts)
}

func (i instrumentOpts) histogram() prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Name:        i.opts.Name,
		Namespace:   i.opts.Namespace,
		Subsystem:   i.opts.Subsystem,
		ConstLabels: i.opts.ConstLabels,
		Help:        i.opts.Help,
		Buckets:     i.buckets,
	}
}

// Gauge returns a prometheus Gauge instrument.
func (m mi) Gauge() (prometheus.Gauge, error) {
	if m.gauge == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gauge, nil
}

// GaugeVec returns a prometheus GaugeVec instrument.
func (m mi) GaugeVec() (*prometheus.GaugeVec, error) {
	if m.gaugeV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gaugeV, nil
}

// Counter returns a prometheus Counter instrument.
func (m mi) Counter() (prometheus.Counter, error) {
	if m.counter == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counter, nil
}

// CounterVec returns a prometheus CounterVec instrument.
func (m mi) CounterVec() (*prometheus.CounterVec, error) {
	if m.counterV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counterV, nil
}

func setupMetrics() error {
	e, err := AddInstrument(
		Counter,
		"engine_seconds_total",
		Namespace("curvance"),
		Vectors("engine", "fn"),
		Help("Time spent in engine calls"),
	)
	if err != nil {
		return err
	}
	engineTime, err = e.CounterVec()
	if err != nil {
		return err
	}

	p, err := AddInstrument(
		Counter,
		"price_queries_total",
		Namespace("curvance"),
		Vectors("code"),
		Help("Price router queries by error code"),
	)
	if err != nil {
		return err
	}
	priceQueryCounter, err = p.CounterVec()
	if err != nil {
		return err
	}

	c, err := AddInstrument(
		Counter,
		"reward_claims_total",
		Namespace("curvance"),
		Help("Successful reward claims"),
	)
	if err != nil {
		return err
	}
	claimCounter, err = c.Counter()
	if err != nil {
		return err
	}

	g, err := AddInstrument(
		Counter,
		"gauge_settlements_total",
		Namespace("curvance"),
		Vectors("pool"),
		Help("Gauge pool settlements"),
	)
	if err != nil {
		return err
	}
	gaugeSettleCounter, err = g.CounterVec()
	if err != nil {
		return err
	}

	l, err := AddInstrument(
		Gauge,
		"locked_tokens",
		Namespace("curvance"),
		Help("Chain wide locked token amount"),
	)
	if err != nil {
		return err
	}
	lockedTokensGauge, err = l.Gauge()
	if err != nil {
		return err
	}

	return nil
}

// Start enables the metrics endpoint (given config).
func Start(conf Config) error {
	if !conf.Enabled {
		return nil
	}
	if err := setupMetrics(); err != nil {
		return errors.Wrap(err, "could not set up metrics")
	}
	http.Handle(conf.Path, promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(fmt.Sprintf(":%d", conf.Port), nil)
	}()
	return nil
}

// PriceQueryInc increments the price query counter for an error code.
func PriceQueryInc(code string) {
	if priceQueryCounter == nil {
		return
	}
	priceQueryCounter.WithLabelValues(code).Inc()
}

// ClaimInc increments the successful claim counter.
func ClaimInc() {
	if claimCounter == nil {
		return
	}
	claimCounter.Inc()
}

// GaugeSettleInc increments the settlement counter for a pool.
func GaugeSettleInc(pool string) {
	if gaugeSettleCounter == nil {
		return
	}
	gaugeSettleCounter.WithLabelValues(pool).Inc()
}

// SetLockedTokens records the chain wide locked amount.
func SetLockedTokens(amount float64) {
	if lockedTokensGauge == nil {
		return
	}
	lockedTokensGauge.Set(amount)
}

// StartEngineTime starts a timer for an engine function, returning the stop
// function to defer.
func StartEngineTime(engine, fn string) func() {
	start := time.Now()
	return func() {
		if engineTime == nil {
			return
		}
		engineTime.WithLabelValues(engine, fn).Add(time.Since(start).Seconds())
	}
}
