package bridge

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/status-im/bridge-go/logutils"
	"github.com/status-im/bridge-go/walletevent"
)

const (
	// EventBridgeConfigLoaded emitted when the bridge topology finished loading
	EventBridgeConfigLoaded walletevent.EventType = "bridge-config-loaded"
	// EventBridgeConfigFailed emitted when the bridge topology could not be loaded
	EventBridgeConfigFailed walletevent.EventType = "bridge-config-failed"
	// EventBridgeValidationUpdated emitted when a validation pass settled
	EventBridgeValidationUpdated walletevent.EventType = "bridge-validation-updated"
	// EventBridgeQuotesUpdated emitted when a quote batch settled
	EventBridgeQuotesUpdated walletevent.EventType = "bridge-quotes-updated"
	// EventBridgeQuoteSelected emitted when the selected quote changed
	EventBridgeQuoteSelected walletevent.EventType = "bridge-quote-selected"
	// EventBridgeConfirmationEntered emitted when a quote was pinned for execution
	EventBridgeConfirmationEntered walletevent.EventType = "bridge-confirmation-entered"
	// EventBridgeTransactionUpdated emitted on every tracker observation applied
	EventBridgeTransactionUpdated walletevent.EventType = "bridge-transaction-updated"
	// EventBridgeSessionRestarted emitted when the session returned to a fresh preview
	EventBridgeSessionRestarted walletevent.EventType = "bridge-session-restarted"
)

func sendEvent(feed *event.Feed, eventType walletevent.EventType, chainID uint64, payload interface{}) {
	if feed == nil {
		return
	}

	ev := walletevent.Event{
		Type:    eventType,
		At:      time.Now().Unix(),
		ChainID: chainID,
	}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			logutils.ZapLogger().Error("failed to encode bridge event payload", zap.Error(err))
		} else {
			ev.Payload = encoded
		}
	}

	feed.Send(ev)
}
