package broker

import (
	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/logging"
)

const namedLogger = "broker"

// Config represents the broker specific configuration.
type Config struct {
	Level encoding.LogLevel
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
