package oracles

import (
	"time"

	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/types/num"
)

const namedLogger = "oracles"

// Config represents the price router configuration.
type Config struct {
	Level encoding.LogLevel
	// DivergenceTolerance is the maximum relative difference between two
	// feeds before the quote degrades to caution.
	DivergenceTolerance num.Decimal
	// SequencerGracePeriod is how long the sequencer must have been back
	// up before prices are trusted again.
	SequencerGracePeriod encoding.Duration
	// QuoteCacheSize bounds the last-quote cache.
	QuoteCacheSize int
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:                encoding.LogLevel{Level: logging.InfoLevel},
		DivergenceTolerance:  num.MustDecimalFromString("0.02"),
		SequencerGracePeriod: encoding.Duration{Duration: time.Hour},
		QuoteCacheSize:       512,
	}
}
