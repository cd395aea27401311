package token

import (
	"github.com/ethereum/go-ethereum/common"
)

var nativeChainAddress = common.HexToAddress("0x")

// Token describes the deposit token of the bridgeable asset on one chain.
type Token struct {
	Address common.Address `json:"address"`
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
	// Decimals defines how divisible the token is. For example, 0 would be
	// indivisible, whereas 18 would allow very small amounts of the token
	// to be traded.
	Decimals uint   `json:"decimals"`
	ChainID  uint64 `json:"chainId"`
}

func (t *Token) IsNative() bool {
	return t.Address == nativeChainAddress
}
