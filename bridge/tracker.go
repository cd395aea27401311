package bridge

// TxPhase is the transaction phase of the transfer being executed.
type TxPhase string

const (
	PhaseApprove TxPhase = "approve"
	PhaseBridge  TxPhase = "bridge"
	PhaseUnknown TxPhase = "unknown"
)

// StepContent is the raw lifecycle of the current tracker step as reported
// by the host's transaction-tracking subsystem.
type StepContent int

const (
	StartTx StepContent = iota
	WalletTx
	WaitingTx
	SuccessTx
	ErrorTx
)

// TxStatus is the normalized progress of a transaction phase.
type TxStatus string

const (
	TxBuilding      TxStatus = "building"
	TxPending       TxStatus = "pending"
	TxMining        TxStatus = "mining"
	TxSuccess       TxStatus = "success"
	TxError         TxStatus = "error"
	TxStatusUnknown TxStatus = "unknown"
)

// TrackerUpdate is one observation pushed by the host's transaction tracker.
// Outgoing and Incoming, when set, update the source-chain and
// destination-chain legs of the pinned transfer.
type TrackerUpdate struct {
	Phase    TxPhase
	Content  StepContent
	Outgoing *TxProgress
	Incoming *TxProgress
}

// DeriveTransactionStatus normalizes a tracker observation into the
// `(phase, status)` tuple the UI renders. It is total: any phase outside
// approve/bridge or any unrecognized content derives `(unknown, unknown)`.
func DeriveTransactionStatus(phase TxPhase, content StepContent) (TxPhase, TxStatus) {
	if phase != PhaseApprove && phase != PhaseBridge {
		return PhaseUnknown, TxStatusUnknown
	}

	switch content {
	case StartTx:
		return phase, TxBuilding
	case WalletTx:
		return phase, TxPending
	case WaitingTx:
		return phase, TxMining
	case SuccessTx:
		return phase, TxSuccess
	case ErrorTx:
		return phase, TxError
	default:
		return PhaseUnknown, TxStatusUnknown
	}
}

// isTerminal reports whether the derived tuple ends the transaction step:
// a lost tracker, any phase error, or bridge success all return the session
// to a fresh preview.
func isTerminal(phase TxPhase, status TxStatus) bool {
	if phase == PhaseUnknown && status == TxStatusUnknown {
		return true
	}
	if status == TxError {
		return true
	}
	return phase == PhaseBridge && status == TxSuccess
}
