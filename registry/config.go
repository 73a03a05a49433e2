package registry

import "code.curvance.io/curvance/types"

// Config represents the directory bootstrap configuration. All three
// addresses are hex encoded and must be non zero.
type Config struct {
	DAO            string
	FeeAccumulator string
	LockToken      string
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		DAO:            "0x40007fDE9004dF12A74d3A7C6ee3959717601Dab",
		FeeAccumulator: "0xFee0000000000000000000000000000000000Acc",
		LockToken:      "0x00000000000000000000000000000000000C7e00",
	}
}

// NewFromConfig creates a registry from the bootstrap configuration.
func NewFromConfig(cfg Config) (*Registry, error) {
	return New(
		types.AssetAddressFromHex(cfg.DAO),
		types.AssetAddressFromHex(cfg.FeeAccumulator),
		types.AssetAddressFromHex(cfg.LockToken),
	)
}
