package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// AssetAddress identifies a fungible token by its on chain address.
type AssetAddress = common.Address

// AccountAddress identifies a user or contract account.
type AccountAddress = common.Address

// AssetAddressFromHex parses a 0x prefixed hex address.
func AssetAddressFromHex(s string) AssetAddress {
	return common.HexToAddress(s)
}

// SwapDescriptor is a generic swap instruction executed against an external
// DEX aggregator. The core never routes swaps itself, it only validates the
// target against an allow-list and checks the output delta.
type SwapDescriptor struct {
	Target      AccountAddress
	InputAsset  AssetAddress
	OutputAsset AssetAddress
	CallData    []byte
}
