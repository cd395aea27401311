package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TxRequest is the transaction handed to the wallet for signing and
// broadcasting.
type TxRequest struct {
	ChainID uint64         `json:"chainId"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Value   *hexutil.Big   `json:"value"`
	Data    hexutil.Bytes  `json:"data,omitempty"`
}

// Wallet is the signing capability of the host application. The core never
// touches keys, it only asks the wallet to sign and broadcast and reads back
// the hash.
type Wallet interface {
	CurrentChainID() uint64
	IsConnected() bool
	RequestConnection(ctx context.Context) error
	RequestNetworkSwitch(ctx context.Context, chainID uint64) error
	SignAndSend(ctx context.Context, req TxRequest) (common.Hash, error)
}

// BalanceSource reads the latest cached balance of a token for an address.
// Balances are refreshed independently by the host's loader subsystem, the
// core never schedules refreshes itself. Returns nil when no value has been
// cached yet.
type BalanceSource interface {
	Balance(chainID uint64, tokenAddress common.Address, owner common.Address) *big.Int
}

// LoaderStatus is the lifecycle state of one resource fetch tracked by the
// host's generic data-loader subsystem.
type LoaderStatus struct {
	Category string         `json:"category"`
	ChainID  uint64         `json:"chainId"`
	Address  common.Address `json:"address"`
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
}

// LoaderStatusReader is the small query surface of the loader subsystem the
// core consumes.
type LoaderStatusReader interface {
	Statuses() []LoaderStatus
}
