package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategorizeStatusesCollapsesPerCategory(t *testing.T) {
	statuses := []LoaderStatus{
		{Category: "balance", ChainID: chainMainnet, Status: StatusRejected, Message: "rpc unreachable"},
		{Category: "balance", ChainID: chainOptimism, Status: StatusRejected, Message: "rpc unreachable"},
		{Category: "balance", ChainID: chainMainnet, Status: StatusRejected, Message: "timeout"},
		{Category: "quote", Status: StatusRejected, Message: "provider degraded"},
		{Category: "config", Status: StatusRejected, Message: "config endpoint 500"},
	}

	banners := CategorizeStatuses(statuses)

	require.Len(t, banners, 3)
	require.Equal(t, ErrorCategoryConfig, banners[0].Category)
	require.Equal(t, ErrorCategoryRPC, banners[1].Category)
	require.Equal(t, ErrorCategoryProvider, banners[2].Category)

	// chain ids are deduplicated and sorted
	require.Equal(t, []uint64{chainMainnet, chainOptimism}, banners[1].ChainIDs)
	require.Len(t, banners[1].Messages, 3)
}

func TestCategorizeStatusesIgnoresHealthyLoaders(t *testing.T) {
	statuses := []LoaderStatus{
		{Category: "balance", ChainID: chainMainnet, Status: StatusFulfilled},
		{Category: "quote", Status: StatusPending},
		{Category: "config", Status: StatusIdle},
	}

	require.Empty(t, CategorizeStatuses(statuses))
}

func TestCategorizeStatusesUnknownCategoryFallsBackToProvider(t *testing.T) {
	banners := CategorizeStatuses([]LoaderStatus{
		{Category: "something-new", Status: StatusRejected, Message: "boom"},
	})

	require.Len(t, banners, 1)
	require.Equal(t, ErrorCategoryProvider, banners[0].Category)
}
