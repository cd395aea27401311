package bridge

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"

	"github.com/status-im/bridge-go/walletevent"
)

// fulfilledFixture drives a fixture to the point where a quote is selected.
func fulfilledFixture(t *testing.T) *sessionFixture {
	t.Helper()
	fixture := newSessionFixture(t, echoProvider("hop", 5, 300))
	fixture.balances.set(chainMainnet, 1000)
	require.NoError(t, fixture.session.SetInputAmount(big.NewInt(100), testToken(chainMainnet), false))
	waitForStatus(t, func() Status { return fixture.session.Quotes().Status }, StatusFulfilled)
	return fixture
}

func TestConfirmRequiresSelectedQuote(t *testing.T) {
	fixture := newSessionFixture(t)
	require.ErrorIs(t, fixture.session.Confirm(), ErrNoQuoteSelected)
}

func TestConfirmPinsSelectedQuote(t *testing.T) {
	fixture := fulfilledFixture(t)

	require.NoError(t, fixture.session.Confirm())

	require.Equal(t, StepConfirm, fixture.session.Form().Step)
	confirm := fixture.session.Confirmation()
	require.NotNil(t, confirm.Quote)
	require.Equal(t, "hop-quote", confirm.Quote.ID)
}

func TestChainEditLeavesConfirmStep(t *testing.T) {
	fixture := fulfilledFixture(t)
	require.NoError(t, fixture.session.Confirm())

	require.NoError(t, fixture.session.SetFromChain(chainArbitrum))

	require.Equal(t, StepPreview, fixture.session.Form().Step)
	require.Equal(t, StatusIdle, fixture.session.Quotes().Status)
}

func TestReadinessIsTristate(t *testing.T) {
	fixture := fulfilledFixture(t)
	require.NoError(t, fixture.session.Confirm())

	fixture.wallet.mu.Lock()
	fixture.wallet.connected = false
	fixture.wallet.mu.Unlock()
	require.Equal(t, ConfirmationReadiness{NeedsConnection: true}, fixture.session.Readiness())

	require.NoError(t, fixture.wallet.RequestConnection(context.Background()))
	require.NoError(t, fixture.wallet.RequestNetworkSwitch(context.Background(), chainArbitrum))
	require.Equal(t, ConfirmationReadiness{NeedsNetworkSwitch: true}, fixture.session.Readiness())

	require.NoError(t, fixture.wallet.RequestNetworkSwitch(context.Background(), chainMainnet))
	require.Equal(t, ConfirmationReadiness{Ready: true}, fixture.session.Readiness())
}

func TestPerformBridgeSubmitsPinnedTransfer(t *testing.T) {
	fixture := fulfilledFixture(t)
	require.NoError(t, fixture.session.Confirm())

	require.NoError(t, fixture.session.PerformBridge(context.Background()))

	require.Equal(t, StepTransaction, fixture.session.Form().Step)
	confirm := fixture.session.Confirmation()
	require.Equal(t, StatusFulfilled, confirm.Status)
	require.NotNil(t, confirm.Outgoing)
	require.Equal(t, fixture.wallet.hash, confirm.Outgoing.Hash)

	sent := fixture.wallet.sentRequests()
	require.Len(t, sent, 1)
	require.Equal(t, chainMainnet, sent[0].ChainID)
	require.Equal(t, testOwner, sent[0].From)
	require.Equal(t, int64(100), sent[0].Value.ToInt().Int64())
}

func TestPerformBridgeOutsideConfirmStep(t *testing.T) {
	fixture := fulfilledFixture(t)
	require.ErrorIs(t, fixture.session.PerformBridge(context.Background()), ErrNotInConfirmStep)
}

func TestPerformBridgeRequiresReadyWallet(t *testing.T) {
	fixture := fulfilledFixture(t)
	require.NoError(t, fixture.session.Confirm())

	fixture.wallet.mu.Lock()
	fixture.wallet.connected = false
	fixture.wallet.mu.Unlock()

	require.ErrorIs(t, fixture.session.PerformBridge(context.Background()), ErrWalletNotReady)
	require.Equal(t, StepConfirm, fixture.session.Form().Step)
	require.Empty(t, fixture.wallet.sentRequests())
}

func TestPerformBridgeWalletRejection(t *testing.T) {
	fixture := fulfilledFixture(t)
	require.NoError(t, fixture.session.Confirm())

	rejected := errors.New("user rejected in wallet")
	fixture.wallet.mu.Lock()
	fixture.wallet.sendErr = rejected
	fixture.wallet.mu.Unlock()

	require.ErrorIs(t, fixture.session.PerformBridge(context.Background()), rejected)

	// the session stays on the confirm step so the user can retry
	require.Equal(t, StepConfirm, fixture.session.Form().Step)
	confirm := fixture.session.Confirmation()
	require.Equal(t, StatusRejected, confirm.Status)
	require.ErrorIs(t, confirm.Error, rejected)
}

// transactionFixture drives a fixture into the transaction step.
func transactionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	fixture := fulfilledFixture(t)
	require.NoError(t, fixture.session.Confirm())
	require.NoError(t, fixture.session.PerformBridge(context.Background()))
	return fixture
}

func subscribeRestarts(t *testing.T, fixture *sessionFixture) func() int {
	t.Helper()
	events := make(chan walletevent.Event, 16)
	sub := fixture.feed.Subscribe(events)
	t.Cleanup(sub.Unsubscribe)

	return func() int {
		count := 0
		for {
			select {
			case ev := <-events:
				if ev.Type == EventBridgeSessionRestarted {
					count++
				}
			case <-time.After(100 * time.Millisecond):
				return count
			}
		}
	}
}

func TestBridgeSuccessRestartsSession(t *testing.T) {
	fixture := transactionFixture(t)
	restarts := subscribeRestarts(t, fixture)

	fixture.session.HandleTrackerUpdate(TrackerUpdate{
		Phase:    PhaseBridge,
		Content:  SuccessTx,
		Incoming: &TxProgress{Hash: common.HexToHash("0x02"), Mined: true},
	})

	require.Equal(t, StepPreview, fixture.session.Form().Step)
	require.Equal(t, int64(0), fixture.session.Form().Input.Amount.ToInt().Int64())
	require.Equal(t, 1, restarts())
}

func TestTrackerErrorRestartsSession(t *testing.T) {
	fixture := transactionFixture(t)
	restarts := subscribeRestarts(t, fixture)

	fixture.session.HandleTrackerUpdate(TrackerUpdate{Phase: PhaseBridge, Content: ErrorTx})

	require.Equal(t, StepPreview, fixture.session.Form().Step)
	require.Equal(t, 1, restarts())
}

func TestLostTrackerRestartsSession(t *testing.T) {
	fixture := transactionFixture(t)
	restarts := subscribeRestarts(t, fixture)

	fixture.session.HandleTrackerUpdate(TrackerUpdate{Phase: PhaseUnknown, Content: StepContent(99)})

	require.Equal(t, StepPreview, fixture.session.Form().Step)
	require.Equal(t, 1, restarts())
}

func TestAutoRestartIsIdempotent(t *testing.T) {
	fixture := transactionFixture(t)
	restarts := subscribeRestarts(t, fixture)

	terminal := TrackerUpdate{Phase: PhaseBridge, Content: SuccessTx}
	fixture.session.HandleTrackerUpdate(terminal)
	// a replayed terminal observation arrives outside the transaction step
	// and must not restart again
	fixture.session.HandleTrackerUpdate(terminal)
	fixture.session.HandleTrackerUpdate(terminal)

	require.Equal(t, StepPreview, fixture.session.Form().Step)
	require.Equal(t, 1, restarts())
}

func TestNonTerminalUpdatesTrackProgress(t *testing.T) {
	fixture := transactionFixture(t)

	fixture.session.HandleTrackerUpdate(TrackerUpdate{
		Phase:    PhaseBridge,
		Content:  WaitingTx,
		Outgoing: &TxProgress{Hash: fixture.wallet.hash, Mined: true},
	})

	require.Equal(t, StepTransaction, fixture.session.Form().Step)
	confirm := fixture.session.Confirmation()
	require.NotNil(t, confirm.Outgoing)
	require.True(t, confirm.Outgoing.Mined)
}

func TestApproveErrorRestartsSession(t *testing.T) {
	fixture := transactionFixture(t)
	restarts := subscribeRestarts(t, fixture)

	fixture.session.HandleTrackerUpdate(TrackerUpdate{Phase: PhaseApprove, Content: ErrorTx})

	require.Equal(t, StepPreview, fixture.session.Form().Step)
	require.Equal(t, 1, restarts())
}

func TestApproveSuccessDoesNotRestart(t *testing.T) {
	fixture := transactionFixture(t)
	restarts := subscribeRestarts(t, fixture)

	fixture.session.HandleTrackerUpdate(TrackerUpdate{Phase: PhaseApprove, Content: SuccessTx})

	require.Equal(t, StepTransaction, fixture.session.Form().Step)
	require.Equal(t, 0, restarts())
}
