package topology

import (
	"fmt"

	"github.com/status-im/bridge-go/token"
)

// ProviderID identifies one bridge provider integration.
type ProviderID string

// ChainConfig describes one chain endpoint of the bridge topology.
type ChainConfig struct {
	ChainID uint64 `json:"chainId"`
	Name    string `json:"name"`
	// DefaultSource marks the chain preselected as the source when the
	// wallet's current chain is not a bridge endpoint.
	DefaultSource bool `json:"defaultSource,omitempty"`
}

// ProviderConfig describes one bridge provider: the chains it supports and
// the per-chain directions it refuses to serve.
type ProviderConfig struct {
	ID              ProviderID `json:"id"`
	Chains          []uint64   `json:"chains"`
	SendDisabled    []uint64   `json:"sendDisabled,omitempty"`
	ReceiveDisabled []uint64   `json:"receiveDisabled,omitempty"`
}

// BridgeConfig is the wire format of the bridge topology, fetched once per
// session from the config endpoint.
type BridgeConfig struct {
	Chains    []ChainConfig           `json:"chains"`
	Providers []ProviderConfig        `json:"providers"`
	Tokens    map[uint64]*token.Token `json:"tokens"`
}

func (c *BridgeConfig) validate() error {
	if len(c.Chains) < 2 {
		return fmt.Errorf("config must contain at least two chains, got %d", len(c.Chains))
	}

	known := make(map[uint64]bool, len(c.Chains))
	for _, chain := range c.Chains {
		if known[chain.ChainID] {
			return fmt.Errorf("duplicate chain %d in config", chain.ChainID)
		}
		known[chain.ChainID] = true
	}

	for chainID := range known {
		if c.Tokens[chainID] == nil {
			return fmt.Errorf("no deposit token configured for chain %d", chainID)
		}
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("config contains no providers")
	}
	for _, provider := range c.Providers {
		if provider.ID == "" {
			return fmt.Errorf("provider with empty id in config")
		}
		for _, chainID := range provider.Chains {
			if !known[chainID] {
				return fmt.Errorf("provider %s references unknown chain %d", provider.ID, chainID)
			}
		}
	}

	return nil
}
