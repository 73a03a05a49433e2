package epochtime

import (
	"time"

	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/logging"
)

const namedLogger = "epochtime"

// Config represents the epoch clock configuration. EpochDuration is a per
// deployment choice, it is deliberately not a package constant.
type Config struct {
	Level         encoding.LogLevel
	EpochDuration encoding.Duration
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:         encoding.LogLevel{Level: logging.InfoLevel},
		EpochDuration: encoding.Duration{Duration: 14 * 24 * time.Hour},
	}
}
