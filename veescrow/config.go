package veescrow

import (
	"time"

	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/types/num"
)

const namedLogger = "veescrow"

// Config represents the vote escrow configuration.
type Config struct {
	Level encoding.LogLevel
	// EpochDuration must match the epoch clock the ledger is wired to,
	// the constructor refuses a mismatch.
	EpochDuration encoding.Duration
	// LockEpochs is the lock duration of new and extended locks.
	LockEpochs uint64
	// ContinuousBoost multiplies the points of continuous locks.
	ContinuousBoost num.Decimal
	// MinLockTokens is the minimum lock amount in whole tokens.
	MinLockTokens uint64
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:           encoding.LogLevel{Level: logging.InfoLevel},
		EpochDuration:   encoding.Duration{Duration: 14 * 24 * time.Hour},
		LockEpochs:      26,
		ContinuousBoost: num.MustDecimalFromString("2"),
		MinLockTokens:   1,
	}
}
