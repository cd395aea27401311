package provider

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/status-im/bridge-go/token"
	"github.com/status-im/bridge-go/topology"
)

// QuoteParams carries the transfer the provider is asked to price.
type QuoteParams struct {
	FromChain uint64
	ToChain   uint64
	FromToken *token.Token
	ToToken   *token.Token
	AmountIn  *big.Int
	FromAddr  common.Address
	ToAddr    common.Address
}

// Quote is a concrete, provider-priced offer to execute a transfer.
type Quote struct {
	ID            string              `json:"id"`
	ProviderID    topology.ProviderID `json:"providerId"`
	FromChain     uint64              `json:"fromChain"`
	ToChain       uint64              `json:"toChain"`
	FromToken     *token.Token        `json:"fromToken"`
	ToToken       *token.Token        `json:"toToken"`
	AmountIn      *hexutil.Big        `json:"amountIn"`
	AmountOut     *hexutil.Big        `json:"amountOut"`
	Fee           *hexutil.Big        `json:"fee"`
	FeeToken      *token.Token        `json:"feeToken"`
	EstimatedTime uint64              `json:"estimatedTime"` // seconds
	Receiver      common.Address      `json:"receiver"`
}

// NetAmountOut is the output amount after the provider fee, the quantity
// quotes are ranked by.
func (q *Quote) NetAmountOut() *big.Int {
	out := q.AmountOut.ToInt()
	if q.Fee == nil {
		return new(big.Int).Set(out)
	}
	return new(big.Int).Sub(out, q.Fee.ToInt())
}

// LimitExceededError reports that the provider is eligible for the route but
// the requested amount exceeds its current per-period ceiling. Quote carries
// the provider's offer for informational display, it is never selectable.
type LimitExceededError struct {
	Quote   *Quote
	Current *big.Int
	Max     *big.Int
	CanWait bool
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("amount exceeds provider limit: current %s, max %s", e.Current, e.Max)
}

// QuoteProvider prices transfers for the routes it serves.
type QuoteProvider interface {
	Name() topology.ProviderID
	FetchQuote(ctx context.Context, params QuoteParams) (*Quote, error)
}
