package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/status-im/bridge-go/async"
	"github.com/status-im/bridge-go/logutils"
	"github.com/status-im/bridge-go/provider"
	"github.com/status-im/bridge-go/topology"
)

// Service owns the bridge topology and spawns transfer sessions. One service
// instance serves the whole application lifetime; sessions are cheap and
// short-lived.
type Service struct {
	store     *topology.Store
	providers []provider.QuoteProvider
	wallet    Wallet
	balances  BalanceSource
	statuses  LoaderStatusReader
	feed      *event.Feed

	group  *async.Group
	logger *zap.Logger
}

func NewService(store *topology.Store, providers []provider.QuoteProvider,
	wallet Wallet, balances BalanceSource, statuses LoaderStatusReader,
	feed *event.Feed) *Service {
	return &Service{
		store:     store,
		providers: providers,
		wallet:    wallet,
		balances:  balances,
		statuses:  statuses,
		feed:      feed,
		logger:    logutils.ZapLogger().Named("BridgeService"),
	}
}

// Start kicks off the background topology load. The service is usable for
// session creation as soon as the load settles; OpenSession reports
// ErrConfigNotLoaded until then.
func (s *Service) Start() {
	s.group = async.NewGroup(context.Background())
	s.group.Add(func(ctx context.Context) error {
		top, err := s.store.Load(ctx)
		if err != nil {
			s.logger.Error("bridge config load failed", zap.Error(err))
			sendEvent(s.feed, EventBridgeConfigFailed, 0, configPayload{Error: err.Error()})
			return err
		}
		s.logger.Info("bridge config loaded", zap.Int("chains", len(top.ChainIDs())))
		sendEvent(s.feed, EventBridgeConfigLoaded, 0, configPayload{Chains: top.ChainIDs()})
		return nil
	})
}

// Stop waits for background work to finish.
func (s *Service) Stop() {
	if s.group != nil {
		s.group.Stop()
		s.group.Wait()
	}
}

// Reload drops the cached topology and fetches it again. Used to recover
// from a failed initial load.
func (s *Service) Reload(ctx context.Context) error {
	s.store.Invalidate()
	top, err := s.store.Load(ctx)
	if err != nil {
		sendEvent(s.feed, EventBridgeConfigFailed, 0, configPayload{Error: err.Error()})
		return err
	}
	sendEvent(s.feed, EventBridgeConfigLoaded, 0, configPayload{Chains: top.ChainIDs()})
	return nil
}

// OpenSession creates and initiates a transfer session for the given wallet
// owner.
func (s *Service) OpenSession(owner common.Address) (*Session, error) {
	top := s.store.Topology()
	if top == nil {
		return nil, ErrConfigNotLoaded
	}

	session := NewSession(top, s.providers, s.wallet, s.balances, s.feed)
	if err := session.Initiate(owner); err != nil {
		session.Close()
		return nil, err
	}
	s.logger.Debug("session opened", zap.String("uuid", session.UUID()))
	return session, nil
}

// ErrorBanners snapshots the current loader degradations as banner buckets.
func (s *Service) ErrorBanners() []ErrorBanner {
	if s.statuses == nil {
		return nil
	}
	return CategorizeStatuses(s.statuses.Statuses())
}

type configPayload struct {
	Chains []uint64 `json:"chains,omitempty"`
	Error  string   `json:"error,omitempty"`
}
