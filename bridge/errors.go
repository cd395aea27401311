package bridge

import (
	"fmt"
	"math/big"

	"github.com/status-im/bridge-go/errors"
)

// Abbreviation `WB` for the error code stands for Wallet Bridge
var (
	ErrConfigNotLoaded        = &errors.ErrorResponse{Code: errors.ErrorCode("WB-001"), Details: "bridge config not loaded"}
	ErrSessionNotInitialized  = &errors.ErrorResponse{Code: errors.ErrorCode("WB-002"), Details: "bridge session not initialized"}
	ErrChainNotSupported      = &errors.ErrorResponse{Code: errors.ErrorCode("WB-003"), Details: "chain is not a bridge endpoint"}
	ErrNoRouteAvailable       = &errors.ErrorResponse{Code: errors.ErrorCode("WB-004"), Details: "no route available"}
	ErrAmountNotSet           = &errors.ErrorResponse{Code: errors.ErrorCode("WB-005"), Details: "amount not set"}
	ErrNotEnoughTokenBalance  = &errors.ErrorResponse{Code: errors.ErrorCode("WB-006"), Details: "not enough token balance"}
	ErrSameChainTransfer      = &errors.ErrorResponse{Code: errors.ErrorCode("WB-007"), Details: "source and destination chain are the same"}
	ErrQuoteNotFound          = &errors.ErrorResponse{Code: errors.ErrorCode("WB-008"), Details: "quote not found"}
	ErrNoQuoteSelected        = &errors.ErrorResponse{Code: errors.ErrorCode("WB-009"), Details: "no quote selected"}
	ErrNotInConfirmStep       = &errors.ErrorResponse{Code: errors.ErrorCode("WB-010"), Details: "operation not available in this step"}
	ErrBalanceUnknown         = &errors.ErrorResponse{Code: errors.ErrorCode("WB-011"), Details: "balance not available yet"}
	ErrWalletNotReady         = &errors.ErrorResponse{Code: errors.ErrorCode("WB-012"), Details: "wallet not connected or on the wrong network"}
)

// AllQuotesRateLimitedError is the aggregate quote failure used when every
// eligible provider declined the amount because of a throughput ceiling. It
// carries structured limit data so the caller can suggest waiting or sending
// a smaller amount instead of showing a generic failure.
type AllQuotesRateLimitedError struct {
	Current *big.Int
	Max     *big.Int
	CanWait bool
}

func (e *AllQuotesRateLimitedError) Error() string {
	return fmt.Sprintf("all providers rate limited: current %s, max %s", e.Current, e.Max)
}
