package bridge

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/status-im/bridge-go/async"
	"github.com/status-im/bridge-go/circuitbreaker"
	"github.com/status-im/bridge-go/provider"
)

// ProviderError records the failure of a single provider within a quote
// batch.
type ProviderError struct {
	ProviderID string `json:"providerId"`
	Error      string `json:"error"`
	Timeout    bool   `json:"timeout"`
}

type quoteBatch struct {
	quotes         []*provider.Quote
	limited        []*provider.Quote
	limitErrors    []*provider.LimitExceededError
	providerErrors []*ProviderError
}

// fetchQuotesLocked publishes a pending quote state and enqueues the
// provider fan-out for the given generation. Called with the session lock
// held, on a freshly fulfilled validation.
func (s *Session) fetchQuotesLocked(gen uint64, form FormState, owner common.Address) {
	providers := s.routeProvidersLocked(form)
	s.quotes = QuoteState{Status: StatusPending}
	s.emitQuotesLocked()

	params := provider.QuoteParams{
		FromChain: form.FromChain,
		ToChain:   form.ToChain,
		FromToken: form.Input.Token,
		ToToken:   s.topology.DepositToken(form.ToChain),
		// amount is non-nil here, validation requires amount > 0
		AmountIn: form.Input.Amount.ToInt(),
		FromAddr: owner,
		ToAddr:   receiverOrOwner(form, owner),
	}

	s.runGuarded(quoteTask, gen, func(ctx context.Context) (interface{}, error) {
		return s.fetchQuoteBatch(ctx, providers, params), nil
	}, func(res interface{}, err error) {
		if err != nil {
			s.quotes = QuoteState{Status: StatusRejected, Error: err}
			s.emitQuotesLocked()
			return
		}
		s.applyQuoteBatchLocked(res.(*quoteBatch))
	})
}

func (s *Session) routeProvidersLocked(form FormState) []provider.QuoteProvider {
	ids := s.topology.ProvidersFor(form.FromChain, form.ToChain)
	providers := make([]provider.QuoteProvider, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.providers[id]; ok {
			providers = append(providers, p)
		}
	}
	return providers
}

// fetchQuoteBatch queries every carrying provider concurrently. Each call
// runs inside its own circuit, so one slow or tripped provider cannot stall
// the batch past its own timeout. Provider failures are collected, never
// propagated.
func (s *Session) fetchQuoteBatch(ctx context.Context, providers []provider.QuoteProvider,
	params provider.QuoteParams) *quoteBatch {
	batch := &quoteBatch{}
	var mu sync.Mutex

	group := async.NewAtomicGroup(ctx)
	for _, p := range providers {
		p := p
		group.Add(func(c context.Context) error {
			res, err := s.cb.Execute(c, quoteCircuitName(p), func() (interface{}, error) {
				return p.FetchQuote(c, params)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var limitErr *provider.LimitExceededError
				if errors.As(err, &limitErr) {
					batch.limited = append(batch.limited, limitErr.Quote)
					batch.limitErrors = append(batch.limitErrors, limitErr)
					return nil
				}
				batch.providerErrors = append(batch.providerErrors, &ProviderError{
					ProviderID: string(p.Name()),
					Error:      err.Error(),
					Timeout:    circuitbreaker.IsTimeout(err),
				})
				s.logger.Debug("provider quote failed",
					zap.String("provider", string(p.Name())),
					zap.Error(err))
				return nil
			}
			batch.quotes = append(batch.quotes, res.(*provider.Quote))
			return nil
		})
	}
	group.Wait()
	return batch
}

// applyQuoteBatchLocked settles the batch into quote state. Bucketing rules:
// any fulfilled quote wins; otherwise limit-only batches surface the
// aggregated ceiling; otherwise the route yielded nothing.
func (s *Session) applyQuoteBatchLocked(batch *quoteBatch) {
	rankQuotes(batch.quotes)
	rankQuotes(batch.limited)

	if len(batch.quotes) > 0 {
		s.quotes = QuoteState{
			Status:         StatusFulfilled,
			SelectedID:     batch.quotes[0].ID,
			Quotes:         batch.quotes,
			LimitedQuotes:  batch.limited,
			ProviderErrors: batch.providerErrors,
		}
		s.emitQuotesLocked()
		s.emitQuoteSelectedLocked()
		return
	}

	if len(batch.limitErrors) > 0 {
		aggregated := aggregateLimitErrors(batch.limitErrors)
		s.quotes = QuoteState{
			Status:        StatusRejected,
			LimitedQuotes: batch.limited,
			Error:         aggregated,
			LimitError: &LimitError{
				Current: hexBig(aggregated.Current),
				Max:     hexBig(aggregated.Max),
				CanWait: aggregated.CanWait,
			},
			ProviderErrors: batch.providerErrors,
		}
		s.emitQuotesLocked()
		return
	}

	s.quotes = QuoteState{
		Status:         StatusRejected,
		Error:          ErrNoRouteAvailable,
		ProviderErrors: batch.providerErrors,
	}
	s.emitQuotesLocked()
}

// rankQuotes orders quotes best-first: highest net output, then fastest,
// then by id. The order is total, so equal inputs always rank identically.
func rankQuotes(quotes []*provider.Quote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		a, b := quotes[i], quotes[j]
		if cmp := a.NetAmountOut().Cmp(b.NetAmountOut()); cmp != 0 {
			return cmp > 0
		}
		if a.EstimatedTime != b.EstimatedTime {
			return a.EstimatedTime < b.EstimatedTime
		}
		return a.ID < b.ID
	})
}

// aggregateLimitErrors reduces per-provider ceilings to the most permissive
// one. Waiting helps if any provider's window will roll over.
func aggregateLimitErrors(limitErrors []*provider.LimitExceededError) *AllQuotesRateLimitedError {
	aggregated := &AllQuotesRateLimitedError{}
	for _, limitErr := range limitErrors {
		if limitErr.Max != nil && (aggregated.Max == nil || limitErr.Max.Cmp(aggregated.Max) > 0) {
			aggregated.Max = limitErr.Max
			aggregated.Current = limitErr.Current
		}
		aggregated.CanWait = aggregated.CanWait || limitErr.CanWait
	}
	return aggregated
}

// SelectQuote pins the quote with the given id as the execution candidate.
// Unknown ids are rejected and leave the current selection untouched.
func (s *Session) SelectQuote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	if s.quotes.Status != StatusFulfilled {
		return ErrQuoteNotFound
	}
	if s.quotes.findQuote(id) == nil {
		return ErrQuoteNotFound
	}
	s.quotes.SelectedID = id
	s.emitQuoteSelectedLocked()
	return nil
}

// UnselectQuote clears the execution candidate without discarding the batch.
func (s *Session) UnselectQuote() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrSessionNotInitialized
	}
	s.quotes.SelectedID = ""
	return nil
}

// HasSelectedQuote reports whether a selectable quote is currently pinned.
func (s *Session) HasSelectedQuote() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotes.Status == StatusFulfilled && s.quotes.findQuote(s.quotes.SelectedID) != nil
}

func (s *Session) emitQuotesLocked() {
	sendEvent(s.feed, EventBridgeQuotesUpdated, s.form.FromChain, quotesPayload{
		UUID:    s.uuid,
		Status:  s.quotes.Status,
		Fetched: len(s.quotes.Quotes),
		Limited: len(s.quotes.LimitedQuotes),
		Error:   errorMessage(s.quotes.Error),
	})
}

func (s *Session) emitQuoteSelectedLocked() {
	sendEvent(s.feed, EventBridgeQuoteSelected, s.form.FromChain, selectedPayload{
		UUID:       s.uuid,
		SelectedID: s.quotes.SelectedID,
	})
}

type quotesPayload struct {
	UUID    string `json:"uuid"`
	Status  Status `json:"status"`
	Fetched int    `json:"fetched"`
	Limited int    `json:"limited"`
	Error   string `json:"error,omitempty"`
}

type selectedPayload struct {
	UUID       string `json:"uuid"`
	SelectedID string `json:"selectedId"`
}

func quoteCircuitName(p provider.QuoteProvider) string {
	return "bridgeQuote_" + string(p.Name())
}

func receiverOrOwner(form FormState, owner common.Address) common.Address {
	if form.Receiver != nil {
		return *form.Receiver
	}
	return owner
}
