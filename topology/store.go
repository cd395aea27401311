package topology

import (
	"context"
	"sync"

	"github.com/status-im/bridge-go/token"
)

type routeKey struct {
	from uint64
	to   uint64
}

// RouteTopology is the derived, read-only view over a loaded BridgeConfig.
// All reachability answers are precomputed at load time, never per call.
type RouteTopology struct {
	chains        []ChainConfig
	tokens        map[uint64]*token.Token
	providersFor  map[routeKey][]ProviderID
	destinations  map[uint64][]uint64
	defaultSource uint64
}

func newRouteTopology(config *BridgeConfig) *RouteTopology {
	t := &RouteTopology{
		chains:       append([]ChainConfig(nil), config.Chains...),
		tokens:       make(map[uint64]*token.Token, len(config.Tokens)),
		providersFor: make(map[routeKey][]ProviderID),
		destinations: make(map[uint64][]uint64),
	}
	for chainID, tok := range config.Tokens {
		t.tokens[chainID] = tok
	}

	t.defaultSource = config.Chains[0].ChainID
	for _, chain := range config.Chains {
		if chain.DefaultSource {
			t.defaultSource = chain.ChainID
			break
		}
	}

	for _, from := range config.Chains {
		for _, to := range config.Chains {
			if from.ChainID == to.ChainID {
				continue
			}
			var eligible []ProviderID
			for _, provider := range config.Providers {
				if providerCarries(&provider, from.ChainID, to.ChainID) {
					eligible = append(eligible, provider.ID)
				}
			}
			if len(eligible) == 0 {
				continue
			}
			t.providersFor[routeKey{from.ChainID, to.ChainID}] = eligible
			t.destinations[from.ChainID] = append(t.destinations[from.ChainID], to.ChainID)
		}
	}

	return t
}

// providerCarries reports whether the provider can move the asset from one
// chain to the other. Send and receive eligibility are evaluated per side,
// routes are not assumed symmetric.
func providerCarries(provider *ProviderConfig, from, to uint64) bool {
	return containsChain(provider.Chains, from) &&
		containsChain(provider.Chains, to) &&
		!containsChain(provider.SendDisabled, from) &&
		!containsChain(provider.ReceiveDisabled, to)
}

func containsChain(chains []uint64, chainID uint64) bool {
	for _, c := range chains {
		if c == chainID {
			return true
		}
	}
	return false
}

// Chains returns the configured chain endpoints in config order.
func (t *RouteTopology) Chains() []ChainConfig {
	return append([]ChainConfig(nil), t.chains...)
}

// ChainIDs returns the ids of the configured chains in config order.
func (t *RouteTopology) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(t.chains))
	for _, chain := range t.chains {
		ids = append(ids, chain.ChainID)
	}
	return ids
}

// IsEndpoint reports whether the chain is part of the bridge topology.
func (t *RouteTopology) IsEndpoint(chainID uint64) bool {
	for _, chain := range t.chains {
		if chain.ChainID == chainID {
			return true
		}
	}
	return false
}

// DefaultSource returns the chain preselected as the transfer source.
func (t *RouteTopology) DefaultSource() uint64 {
	return t.defaultSource
}

// DestinationsFrom returns the chains reachable from the given one, in config
// order. Chains with no eligible provider pair never appear.
func (t *RouteTopology) DestinationsFrom(chainID uint64) []uint64 {
	destinations := make([]uint64, 0, len(t.destinations[chainID]))
	return append(destinations, t.destinations[chainID]...)
}

// ProvidersFor returns the providers able to carry a transfer for the ordered
// pair. The result is empty, not an error, when no route exists.
func (t *RouteTopology) ProvidersFor(from, to uint64) []ProviderID {
	providers := make([]ProviderID, 0, len(t.providersFor[routeKey{from, to}]))
	return append(providers, t.providersFor[routeKey{from, to}]...)
}

// DepositToken returns the deposit token of the bridgeable asset on the chain.
func (t *RouteTopology) DepositToken(chainID uint64) *token.Token {
	return t.tokens[chainID]
}

// Store owns the bridge config lifecycle: fetched once, validated as a whole
// and cached for the process lifetime. A failed load leaves the store empty,
// partial topologies are never exposed.
type Store struct {
	fetcher Fetcher

	mu       sync.Mutex
	topology *RouteTopology
}

func NewStore(fetcher Fetcher) *Store {
	return &Store{fetcher: fetcher}
}

// Load fetches, validates and caches the topology. Idempotent: once
// fulfilled, subsequent calls return the cached topology without refetching.
func (s *Store) Load(ctx context.Context) (*RouteTopology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.topology != nil {
		return s.topology, nil
	}

	config, err := s.fetcher.FetchBridgeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	s.topology = newRouteTopology(config)
	return s.topology, nil
}

// Topology returns the cached topology or nil when not loaded.
func (s *Store) Topology() *RouteTopology {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topology
}

// Invalidate drops the cached topology so the next Load refetches.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topology = nil
}
