package bridge

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/status-im/bridge-go/async"
	"github.com/status-im/bridge-go/circuitbreaker"
	"github.com/status-im/bridge-go/logutils"
	"github.com/status-im/bridge-go/provider"
	"github.com/status-im/bridge-go/token"
	"github.com/status-im/bridge-go/topology"
)

const (
	validationDebounceInterval = 150 * time.Millisecond
	providerTimeoutMs          = 10000
)

var (
	validationTask = async.TaskType{ID: 1, Policy: async.ReplacementPolicyCancelOld}
	quoteTask      = async.TaskType{ID: 2, Policy: async.ReplacementPolicyCancelOld}
)

// Session drives a single bridge transfer from form editing through
// confirmation and on-chain tracking. All exported methods are safe for
// concurrent use.
type Session struct {
	uuid      string
	topology  *topology.RouteTopology
	providers map[topology.ProviderID]provider.QuoteProvider
	wallet    Wallet
	balances  BalanceSource
	feed      *event.Feed

	scheduler *async.Scheduler
	debouncer *async.Debouncer
	cb        *circuitbreaker.CircuitBreaker

	mu          sync.Mutex
	initialized bool
	owner       common.Address
	form        FormState
	validation  ValidationState
	quotes      QuoteState
	confirm     ConfirmState
	// generation increments on every mutation that invalidates in-flight
	// async work. Results carrying an older generation are discarded.
	generation uint64

	logger *zap.Logger
}

// NewSession wires a session against a loaded route topology. The session is
// unusable until Initiate is called.
func NewSession(top *topology.RouteTopology, providers []provider.QuoteProvider,
	wallet Wallet, balances BalanceSource, feed *event.Feed) *Session {
	byID := make(map[topology.ProviderID]provider.QuoteProvider, len(providers))
	for _, p := range providers {
		byID[p.Name()] = p
	}
	return &Session{
		uuid:      uuid.NewString(),
		topology:  top,
		providers: byID,
		wallet:    wallet,
		balances:  balances,
		feed:      feed,
		scheduler: async.NewScheduler(),
		debouncer: async.NewDebouncer(validationDebounceInterval),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
			Timeout:                providerTimeoutMs,
			MaxConcurrentRequests:  10,
			RequestVolumeThreshold: 10,
			SleepWindow:            10000,
			ErrorPercentThreshold:  50,
		}),
		logger: logutils.ZapLogger().Named("BridgeSession"),
	}
}

// UUID identifies this session in events and logs.
func (s *Session) UUID() string {
	return s.uuid
}

// Initiate seeds the form for the given wallet owner. The source chain is the
// wallet's current chain when that chain is a routable endpoint, otherwise the
// configured default. The destination is the first routable counterpart.
func (s *Session) Initiate(owner common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to, err := s.initialRoute()
	if err != nil {
		return err
	}

	s.owner = owner
	s.form = FormState{
		Step:      StepPreview,
		FromChain: from,
		ToChain:   to,
		Input: InputAmount{
			Amount: hexBig(big.NewInt(0)),
			Token:  s.topology.DepositToken(from),
		},
	}
	s.validation = ValidationState{Status: StatusIdle}
	s.quotes = QuoteState{Status: StatusIdle}
	s.confirm = ConfirmState{Status: StatusIdle}
	s.initialized = true
	return nil
}

func (s *Session) initialRoute() (uint64, uint64, error) {
	candidates := []uint64{}
	if walletChain := s.wallet.CurrentChainID(); s.topology.IsEndpoint(walletChain) {
		candidates = append(candidates, walletChain)
	}
	candidates = append(candidates, s.topology.DefaultSource())
	candidates = append(candidates, s.topology.ChainIDs()...)

	for _, from := range candidates {
		if destinations := s.topology.DestinationsFrom(from); len(destinations) > 0 {
			return from, destinations[0], nil
		}
	}
	return 0, 0, ErrNoRouteAvailable
}

// Form returns a copy of the current form state.
func (s *Session) Form() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	form := s.form
	if s.form.Receiver != nil {
		receiver := *s.form.Receiver
		form.Receiver = &receiver
	}
	return form
}

// Validation returns a copy of the current validation state.
func (s *Session) Validation() ValidationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validation
}

// Quotes returns a copy of the current quote state.
func (s *Session) Quotes() QuoteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	quotes := s.quotes
	quotes.Quotes = cloneQuotes(s.quotes.Quotes)
	quotes.LimitedQuotes = cloneQuotes(s.quotes.LimitedQuotes)
	return quotes
}

// Confirmation returns a copy of the pinned confirmation state.
func (s *Session) Confirmation() ConfirmState {
	s.mu.Lock()
	defer s.mu.Unlock()
	confirm := s.confirm
	if s.confirm.Outgoing != nil {
		outgoing := *s.confirm.Outgoing
		confirm.Outgoing = &outgoing
	}
	if s.confirm.Incoming != nil {
		incoming := *s.confirm.Incoming
		confirm.Incoming = &incoming
	}
	return confirm
}

// SetFromChain changes the source chain. When the new source collides with
// the current destination, the destination is reassigned to the first
// routable counterpart of the new source.
func (s *Session) SetFromChain(chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	if !s.topology.IsEndpoint(chainID) {
		return ErrChainNotSupported
	}
	if s.form.FromChain == chainID {
		return nil
	}

	// resolve the collision before touching the form so a failed call
	// leaves from != to intact
	toChain := s.form.ToChain
	if toChain == chainID {
		destinations := s.topology.DestinationsFrom(chainID)
		if len(destinations) == 0 {
			return ErrNoRouteAvailable
		}
		toChain = destinations[0]
	}

	s.form.FromChain = chainID
	s.form.ToChain = toChain
	s.form.Step = StepPreview
	s.resetAmountLocked()
	s.invalidateLocked()
	s.scheduleValidationLocked()
	return nil
}

// SetToChain changes the destination chain. When the new destination collides
// with the current source, the source is reassigned to the first chain that
// routes to the new destination.
func (s *Session) SetToChain(chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	if !s.topology.IsEndpoint(chainID) {
		return ErrChainNotSupported
	}
	if s.form.ToChain == chainID {
		return nil
	}

	fromChain := s.form.FromChain
	if fromChain == chainID {
		reassigned, ok := s.sourceRoutingTo(chainID)
		if !ok {
			return ErrNoRouteAvailable
		}
		fromChain = reassigned
	}

	s.form.FromChain = fromChain
	s.form.ToChain = chainID
	s.form.Step = StepPreview
	s.resetAmountLocked()
	s.invalidateLocked()
	s.scheduleValidationLocked()
	return nil
}

// sourceRoutingTo picks the first chain with a route to the given
// destination.
func (s *Session) sourceRoutingTo(chainID uint64) (uint64, bool) {
	for _, from := range s.topology.ChainIDs() {
		if from == chainID {
			continue
		}
		for _, to := range s.topology.DestinationsFrom(from) {
			if to == chainID {
				return from, true
			}
		}
	}
	return 0, false
}

// ReverseDirection swaps source and destination in a single step, so no
// intermediate same-chain form state is ever observable.
func (s *Session) ReverseDirection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	s.form.FromChain, s.form.ToChain = s.form.ToChain, s.form.FromChain
	s.form.Step = StepPreview
	s.resetAmountLocked()
	s.invalidateLocked()
	s.scheduleValidationLocked()
	return nil
}

// SetInputAmount updates the transfer amount. An update that leaves the
// amount, token and max flag unchanged is a no-op and does not disturb
// in-flight validation or quotes.
func (s *Session) SetInputAmount(amount *big.Int, tok *token.Token, isMax bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	if s.inputUnchangedLocked(amount, tok, isMax) {
		return nil
	}

	s.form.Input = InputAmount{
		Amount: hexBig(amount),
		Token:  tok,
		IsMax:  isMax,
	}
	s.invalidateLocked()
	s.scheduleValidationLocked()
	return nil
}

// SetReceiver sets or clears the alternate destination receiver.
func (s *Session) SetReceiver(receiver *common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	s.form.Receiver = receiver
	s.invalidateLocked()
	s.scheduleValidationLocked()
	return nil
}

func (s *Session) inputUnchangedLocked(amount *big.Int, tok *token.Token, isMax bool) bool {
	current := s.form.Input
	if current.IsMax != isMax {
		return false
	}
	currentAmount := big.NewInt(0)
	if current.Amount != nil {
		currentAmount = current.Amount.ToInt()
	}
	newAmount := big.NewInt(0)
	if amount != nil {
		newAmount = amount
	}
	if currentAmount.Cmp(newAmount) != 0 {
		return false
	}
	if current.Token == nil || tok == nil {
		return current.Token == tok
	}
	return current.Token.ChainID == tok.ChainID && current.Token.Address == tok.Address
}

// OnBalanceRefresh re-syncs a max-amount form with the freshly observed
// balance and re-runs validation.
func (s *Session) OnBalanceRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	if s.form.Input.IsMax && s.form.Input.Token != nil {
		if balance := s.balances.Balance(s.form.FromChain, s.form.Input.Token.Address, s.owner); balance != nil {
			s.form.Input.Amount = hexBig(balance)
			s.invalidateLocked()
		}
	}
	s.scheduleValidationLocked()
}

// Restart returns the session to a clean preview step on the current route.
// The transfer amount is zeroed and any pinned confirmation is dropped.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	s.restartLocked()
	return nil
}

func (s *Session) restartLocked() {
	s.resetAmountLocked()
	s.invalidateLocked()
	s.validation = ValidationState{Status: StatusIdle}
	s.confirm = ConfirmState{Status: StatusIdle}
	s.form.Step = StepPreview
	sendEvent(s.feed, EventBridgeSessionRestarted, s.form.FromChain, restartedPayload{UUID: s.uuid})
	s.logger.Debug("session restarted", zap.String("uuid", s.uuid))
}

// Close releases the session's background workers. The session must not be
// used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.initialized = false
	s.generation++
	s.mu.Unlock()

	s.debouncer.Cancel()
	s.scheduler.Stop()
}

func (s *Session) resetAmountLocked() {
	s.form.Input = InputAmount{
		Amount: hexBig(big.NewInt(0)),
		Token:  s.topology.DepositToken(s.form.FromChain),
	}
}

// invalidateLocked marks all async-derived state stale. In-flight validator
// and quote results observe the bumped generation and discard themselves.
func (s *Session) invalidateLocked() {
	s.generation++
	s.quotes = QuoteState{Status: StatusIdle}
}

type restartedPayload struct {
	UUID string `json:"uuid"`
}

// runGuarded enqueues fn on the scheduler and applies its result under the
// session lock only if the session is still at the same generation.
func (s *Session) runGuarded(taskType async.TaskType, gen uint64,
	fn func(ctx context.Context) (interface{}, error),
	apply func(res interface{}, err error)) {
	s.scheduler.Enqueue(taskType, fn, func(res interface{}, _ async.TaskType, err error) {
		if err == async.ErrTaskOverwritten || err == context.Canceled {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.initialized || gen != s.generation {
			return
		}
		apply(res, err)
	})
}
