package rewards

import (
	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/logging"
)

const namedLogger = "rewards"

// Config represents the reward engine configuration.
type Config struct {
	Level encoding.LogLevel
	// RewardAsset is the hex address of the token rewards are paid in.
	RewardAsset string
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:       encoding.LogLevel{Level: logging.InfoLevel},
		RewardAsset: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	}
}
