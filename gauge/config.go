package gauge

import (
	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/logging"
)

const namedLogger = "gauge"

// Config represents the gauge engine configuration.
type Config struct {
	Level encoding.LogLevel
	// RewardAsset is the hex address of the token streamed to stakers.
	RewardAsset string
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:       encoding.LogLevel{Level: logging.InfoLevel},
		RewardAsset: "0xD533a949740bb3306d119CC777fa900bA034cd52",
	}
}
