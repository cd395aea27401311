package bridge

import (
	"context"

	"go.uber.org/zap"
)

// ConfirmationReadiness is the tri-state wallet gate of the confirm step.
// Exactly one of the fields is true at a time.
type ConfirmationReadiness struct {
	NeedsConnection    bool `json:"needsConnection"`
	NeedsNetworkSwitch bool `json:"needsNetworkSwitch"`
	Ready              bool `json:"ready"`
}

// Confirm pins the selected quote and advances the wizard to the confirm
// step. The pinned quote stays frozen even if a newer batch lands afterwards.
func (s *Session) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	quote := s.quotes.findQuote(s.quotes.SelectedID)
	if s.quotes.Status != StatusFulfilled || quote == nil {
		return ErrNoQuoteSelected
	}

	s.confirm = ConfirmState{Status: StatusIdle, Quote: quote}
	s.form.Step = StepConfirm
	sendEvent(s.feed, EventBridgeConfirmationEntered, s.form.FromChain, confirmPayload{
		UUID:    s.uuid,
		QuoteID: quote.ID,
	})
	return nil
}

// Readiness derives the wallet gate from live wallet state. It never
// mutates the session, the host polls or re-derives it on wallet events.
func (s *Session) Readiness() ConfirmationReadiness {
	s.mu.Lock()
	fromChain := s.form.FromChain
	if s.confirm.Quote != nil {
		fromChain = s.confirm.Quote.FromChain
	}
	s.mu.Unlock()

	if !s.wallet.IsConnected() {
		return ConfirmationReadiness{NeedsConnection: true}
	}
	if s.wallet.CurrentChainID() != fromChain {
		return ConfirmationReadiness{NeedsNetworkSwitch: true}
	}
	return ConfirmationReadiness{Ready: true}
}

// PerformBridge submits the pinned transfer through the wallet. On success
// the wizard advances to the transaction step and the outgoing leg starts
// tracking; on failure the confirmation settles rejected and stays on the
// confirm step for retry.
func (s *Session) PerformBridge(ctx context.Context) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return ErrSessionNotInitialized
	}
	if s.form.Step != StepConfirm || s.confirm.Quote == nil {
		s.mu.Unlock()
		return ErrNotInConfirmStep
	}
	quote := s.confirm.Quote
	gen := s.generation
	req := TxRequest{
		ChainID: quote.FromChain,
		From:    s.owner,
		To:      quote.Receiver,
		Value:   quote.AmountIn,
	}
	s.confirm.Status = StatusPending
	s.mu.Unlock()

	if readiness := s.Readiness(); !readiness.Ready {
		s.mu.Lock()
		s.confirm.Status = StatusIdle
		s.mu.Unlock()
		return ErrWalletNotReady
	}

	hash, err := s.wallet.SignAndSend(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized || gen != s.generation {
		// The session moved on while the wallet prompt was open.
		return nil
	}
	if err != nil {
		s.confirm.Status = StatusRejected
		s.confirm.Error = err
		s.emitTransactionLocked(PhaseBridge, ErrorTx)
		s.logger.Info("bridge send rejected", zap.String("uuid", s.uuid), zap.Error(err))
		return err
	}

	s.confirm.Status = StatusFulfilled
	s.confirm.Outgoing = &TxProgress{Hash: hash}
	s.form.Step = StepTransaction
	s.emitTransactionLocked(PhaseBridge, WalletTx)
	s.logger.Info("bridge send submitted",
		zap.String("uuid", s.uuid),
		zap.String("hash", hash.Hex()))
	return nil
}

// HandleTrackerUpdate folds one tracker observation into the pinned transfer
// and restarts the session when the observation is terminal. Updates arriving
// outside the transaction step are ignored, which makes terminal handling
// idempotent: the restart triggered by the first terminal update moves the
// step back to preview, so replays never restart twice.
func (s *Session) HandleTrackerUpdate(update TrackerUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized || s.form.Step != StepTransaction {
		return
	}

	if update.Outgoing != nil {
		outgoing := *update.Outgoing
		s.confirm.Outgoing = &outgoing
	}
	if update.Incoming != nil {
		incoming := *update.Incoming
		s.confirm.Incoming = &incoming
	}

	phase, status := DeriveTransactionStatus(update.Phase, update.Content)
	if status == TxError {
		s.confirm.Status = StatusRejected
	}
	s.emitTransactionLocked(update.Phase, update.Content)

	if isTerminal(phase, status) {
		s.restartLocked()
	}
}

func (s *Session) emitTransactionLocked(phase TxPhase, content StepContent) {
	derivedPhase, derivedStatus := DeriveTransactionStatus(phase, content)
	payload := transactionPayload{
		UUID:   s.uuid,
		Phase:  derivedPhase,
		Status: derivedStatus,
	}
	if s.confirm.Outgoing != nil {
		payload.OutgoingHash = s.confirm.Outgoing.Hash.Hex()
		payload.OutgoingMined = s.confirm.Outgoing.Mined
	}
	if s.confirm.Incoming != nil {
		payload.IncomingHash = s.confirm.Incoming.Hash.Hex()
		payload.IncomingMined = s.confirm.Incoming.Mined
	}
	sendEvent(s.feed, EventBridgeTransactionUpdated, s.form.FromChain, payload)
}

type confirmPayload struct {
	UUID    string `json:"uuid"`
	QuoteID string `json:"quoteId"`
}

type transactionPayload struct {
	UUID          string   `json:"uuid"`
	Phase         TxPhase  `json:"phase"`
	Status        TxStatus `json:"status"`
	OutgoingHash  string   `json:"outgoingHash,omitempty"`
	OutgoingMined bool     `json:"outgoingMined,omitempty"`
	IncomingHash  string   `json:"incomingHash,omitempty"`
	IncomingMined bool     `json:"incomingMined,omitempty"`
}
