package bridge

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
)

// scheduleValidationLocked publishes a pending validation state and arms the
// debouncer. A burst of form edits collapses into a single validator pass
// once input settles.
func (s *Session) scheduleValidationLocked() {
	gen := s.generation
	s.validation = ValidationState{Status: StatusPending, RequestID: gen}
	s.emitValidationLocked()
	s.debouncer.Trigger(func() {
		s.runValidation(gen)
	})
}

func (s *Session) runValidation(gen uint64) {
	s.mu.Lock()
	if !s.initialized || gen != s.generation {
		s.mu.Unlock()
		return
	}
	form := s.form
	owner := s.owner
	s.mu.Unlock()

	s.runGuarded(validationTask, gen, func(ctx context.Context) (interface{}, error) {
		return nil, s.validateForm(form, owner)
	}, func(_ interface{}, err error) {
		if err != nil {
			s.validation = ValidationState{Status: StatusRejected, RequestID: gen, Error: err}
			// A form that fails validation can never hold live quotes.
			s.quotes = QuoteState{Status: StatusIdle}
			s.emitValidationLocked()
			return
		}
		s.validation = ValidationState{Status: StatusFulfilled, RequestID: gen}
		s.emitValidationLocked()
		s.fetchQuotesLocked(gen, form, owner)
	})
}

// validateForm checks the snapshot against route and balance constraints.
// A nil return means the form is quote-able.
func (s *Session) validateForm(form FormState, owner common.Address) error {
	amount := big.NewInt(0)
	if form.Input.Amount != nil {
		amount = form.Input.Amount.ToInt()
	}
	if amount.Sign() <= 0 {
		return ErrAmountNotSet
	}
	if form.FromChain == form.ToChain {
		return ErrSameChainTransfer
	}
	if len(s.topology.ProvidersFor(form.FromChain, form.ToChain)) == 0 {
		return ErrNoRouteAvailable
	}
	if form.Input.Token == nil {
		return ErrAmountNotSet
	}

	balance := s.balances.Balance(form.FromChain, form.Input.Token.Address, owner)
	if balance == nil {
		return ErrBalanceUnknown
	}
	if amount.Cmp(balance) > 0 {
		return ErrNotEnoughTokenBalance
	}
	return nil
}

func (s *Session) emitValidationLocked() {
	sendEvent(s.feed, EventBridgeValidationUpdated, s.form.FromChain, validationPayload{
		UUID:      s.uuid,
		RequestID: s.validation.RequestID,
		Status:    s.validation.Status,
		Error:     errorMessage(s.validation.Error),
	})
	if s.validation.Status == StatusRejected {
		s.logger.Debug("validation rejected",
			zap.String("uuid", s.uuid),
			zap.Uint64("requestID", s.validation.RequestID),
			zap.Error(s.validation.Error))
	}
}

type validationPayload struct {
	UUID      string `json:"uuid"`
	RequestID uint64 `json:"requestId"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
