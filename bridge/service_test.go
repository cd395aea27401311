package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/event"

	"github.com/status-im/bridge-go/topology"
	"github.com/status-im/bridge-go/walletevent"
)

type flakyFetcher struct {
	mu     sync.Mutex
	err    error
	config *topology.BridgeConfig
}

func (f *flakyFetcher) FetchBridgeConfig(ctx context.Context) (*topology.BridgeConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.config, nil
}

func (f *flakyFetcher) recover() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = nil
}

func TestServiceLoadsConfigOnStart(t *testing.T) {
	feed := &event.Feed{}
	events := make(chan walletevent.Event, 8)
	sub := feed.Subscribe(events)
	defer sub.Unsubscribe()

	store := topology.NewStore(&stubFetcher{config: testBridgeConfig()})
	service := NewService(store, nil, &fakeWallet{chainID: chainMainnet, connected: true},
		newFakeBalances(), nil, feed)
	service.Start()
	defer service.Stop()

	select {
	case ev := <-events:
		require.Equal(t, EventBridgeConfigLoaded, ev.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("no config event")
	}

	session, err := service.OpenSession(testOwner)
	require.NoError(t, err)
	defer session.Close()
	require.Equal(t, chainMainnet, session.Form().FromChain)
}

func TestOpenSessionBeforeConfigLoaded(t *testing.T) {
	store := topology.NewStore(&stubFetcher{config: testBridgeConfig()})
	service := NewService(store, nil, &fakeWallet{}, newFakeBalances(), nil, &event.Feed{})

	_, err := service.OpenSession(testOwner)
	require.ErrorIs(t, err, ErrConfigNotLoaded)
}

func TestServiceReloadRecoversFromFailedLoad(t *testing.T) {
	fetcher := &flakyFetcher{err: errors.New("config endpoint down"), config: testBridgeConfig()}
	store := topology.NewStore(fetcher)

	feed := &event.Feed{}
	events := make(chan walletevent.Event, 8)
	sub := feed.Subscribe(events)
	defer sub.Unsubscribe()

	service := NewService(store, nil, &fakeWallet{chainID: chainMainnet, connected: true},
		newFakeBalances(), nil, feed)
	service.Start()
	defer service.Stop()

	select {
	case ev := <-events:
		require.Equal(t, EventBridgeConfigFailed, ev.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("no config event")
	}
	_, err := service.OpenSession(testOwner)
	require.ErrorIs(t, err, ErrConfigNotLoaded)

	fetcher.recover()
	require.NoError(t, service.Reload(context.Background()))

	session, err := service.OpenSession(testOwner)
	require.NoError(t, err)
	defer session.Close()
}

func TestServiceErrorBanners(t *testing.T) {
	store := topology.NewStore(&stubFetcher{config: testBridgeConfig()})
	reader := staticStatuses{
		{Category: "balance", ChainID: chainMainnet, Status: StatusRejected, Message: "down"},
	}
	service := NewService(store, nil, &fakeWallet{}, newFakeBalances(), reader, &event.Feed{})

	banners := service.ErrorBanners()
	require.Len(t, banners, 1)
	require.Equal(t, ErrorCategoryRPC, banners[0].Category)
}

type staticStatuses []LoaderStatus

func (s staticStatuses) Statuses() []LoaderStatus {
	return []LoaderStatus(s)
}
