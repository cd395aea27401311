package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/status-im/bridge-go/provider"
	"github.com/status-im/bridge-go/token"
)

// Step is the wizard position of the bridge session. It drives which
// downstream state is valid to read.
type Step string

const (
	StepPreview     Step = "preview"
	StepConfirm     Step = "confirm"
	StepTransaction Step = "transaction"
)

// Status is the lifecycle of an asynchronous operation owned by the session.
// Async operations never propagate errors past the session, they settle into
// one of these states for callers to inspect.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusRejected  Status = "rejected"
)

// InputAmount is the user-entered transfer amount. IsMax records that the
// amount tracks the live wallet balance, so a balance refresh re-syncs it.
type InputAmount struct {
	Amount *hexutil.Big `json:"amount"`
	Token  *token.Token `json:"token"`
	IsMax  bool         `json:"isMax"`
}

// FormState is the user-facing state of the bridge wizard. FromChain and
// ToChain always differ while the session is initialized.
type FormState struct {
	Step      Step            `json:"step"`
	FromChain uint64          `json:"fromChain"`
	ToChain   uint64          `json:"toChain"`
	Input     InputAmount     `json:"input"`
	Receiver  *common.Address `json:"receiver,omitempty"`
}

// ValidationState reports whether the current form is quote-able.
// RequestID is the generation token the result was computed for; responses
// carrying a stale generation are discarded, never applied.
type ValidationState struct {
	Status    Status `json:"status"`
	RequestID uint64 `json:"requestId"`
	Error     error  `json:"-"`
}

// LimitError is the structured ceiling data of an all-rate-limited quote
// batch.
type LimitError struct {
	Current *hexutil.Big `json:"current"`
	Max     *hexutil.Big `json:"max"`
	CanWait bool         `json:"canWait"`
}

// QuoteState is the outcome of one quote batch. Quotes are ranked best-first;
// SelectedID, when set, is always the id of one of Quotes. LimitedQuotes are
// informational and never selectable.
type QuoteState struct {
	Status        Status            `json:"status"`
	SelectedID    string            `json:"selectedId,omitempty"`
	Quotes        []*provider.Quote `json:"quotes"`
	LimitedQuotes []*provider.Quote `json:"limitedQuotes"`
	Error         error             `json:"-"`
	LimitError    *LimitError       `json:"limitError,omitempty"`
	// ProviderErrors records per-provider failures of the batch. A batch can
	// be fulfilled and still carry errors from the providers that lost.
	ProviderErrors []*ProviderError `json:"providerErrors,omitempty"`
}

func (s *QuoteState) findQuote(id string) *provider.Quote {
	for _, quote := range s.Quotes {
		if quote.ID == id {
			return quote
		}
	}
	return nil
}

// TxProgress tracks one on-chain leg of the transfer.
type TxProgress struct {
	Hash  common.Hash `json:"hash"`
	Mined bool        `json:"mined"`
}

// ConfirmState pins the quote being executed. The pinned quote is immutable
// for the lifetime of the confirmation, a new confirmation replaces it
// wholesale.
type ConfirmState struct {
	Status   Status          `json:"status"`
	Quote    *provider.Quote `json:"quote,omitempty"`
	Outgoing *TxProgress     `json:"outgoing,omitempty"`
	Incoming *TxProgress     `json:"incoming,omitempty"`
	Error    error           `json:"-"`
}

func cloneQuotes(quotes []*provider.Quote) []*provider.Quote {
	return append([]*provider.Quote(nil), quotes...)
}

func hexBig(v *big.Int) *hexutil.Big {
	if v == nil {
		return nil
	}
	return (*hexutil.Big)(new(big.Int).Set(v))
}
