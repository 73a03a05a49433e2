package config

import (
	"os"
	"path/filepath"

	"code.curvance.io/curvance/broker"
	"code.curvance.io/curvance/collateral"
	"code.curvance.io/curvance/epochtime"
	"code.curvance.io/curvance/gauge"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/metrics"
	"code.curvance.io/curvance/oracles"
	"code.curvance.io/curvance/registry"
	"code.curvance.io/curvance/rewards"
	"code.curvance.io/curvance/veescrow"

	"github.com/BurntSushi/toml"
)

// Config ties together all other application configuration types.
type Config struct {
	Logging    logging.Config
	Registry   registry.Config
	Broker     broker.Config
	EpochTime  epochtime.Config
	Oracles    oracles.Config
	Collateral collateral.Config
	VoteEscrow veescrow.Config
	Rewards    rewards.Config
	Gauge      gauge.Config
	Metrics    metrics.Config
}

// NewDefaultConfig returns the default configuration of every package.
func NewDefaultConfig() Config {
	return Config{
		Logging:    logging.NewDefaultConfig(),
		Registry:   registry.NewDefaultConfig(),
		Broker:     broker.NewDefaultConfig(),
		EpochTime:  epochtime.NewDefaultConfig(),
		Oracles:    oracles.NewDefaultConfig(),
		Collateral: collateral.NewDefaultConfig(),
		VoteEscrow: veescrow.NewDefaultConfig(),
		Rewards:    rewards.NewDefaultConfig(),
		Gauge:      gauge.NewDefaultConfig(),
		Metrics:    metrics.NewDefaultConfig(),
	}
}

// Read loads the configuration file from the root path, layered over the
// defaults.
func Read(rootPath string) (*Config, error) {
	path := filepath.Join(rootPath, configFileName)
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write serialises the configuration to the root path.
func Write(rootPath string, cfg Config) error {
	f, err := os.Create(filepath.Join(rootPath, configFileName))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
