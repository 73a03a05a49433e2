package metrics

import (
	"code.curvance.io/curvance/config/encoding"
	"code.curvance.io/curvance/logging"
)

// Config represents the metrics endpoint configuration.
type Config struct {
	Level   encoding.LogLevel
	Enabled encoding.Bool
	Port    int
	Path    string
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:   encoding.LogLevel{Level: logging.InfoLevel},
		Enabled: false,
		Port:    2112,
		Path:    "/metrics",
	}
}
