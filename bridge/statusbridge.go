package bridge

import "sort"

// ErrorCategory is the banner bucket a degraded loader collapses into.
type ErrorCategory string

const (
	ErrorCategoryConfig   ErrorCategory = "config"
	ErrorCategoryRPC      ErrorCategory = "rpc"
	ErrorCategoryProvider ErrorCategory = "provider"
)

// loader categories as reported by the host's loader subsystem
const (
	loaderCategoryConfig  = "config"
	loaderCategoryBalance = "balance"
	loaderCategoryRPC     = "rpc"
	loaderCategoryQuote   = "quote"
)

// ErrorBanner is one user-facing degradation notice. Many failing loaders of
// the same kind collapse into a single banner.
type ErrorBanner struct {
	Category ErrorCategory `json:"category"`
	ChainIDs []uint64      `json:"chainIds"`
	Messages []string      `json:"messages"`
}

// CategorizeStatuses folds the loader status list into at most one banner per
// category, ordered config first, then rpc, then provider. Non-rejected
// statuses contribute nothing.
func CategorizeStatuses(statuses []LoaderStatus) []ErrorBanner {
	banners := map[ErrorCategory]*ErrorBanner{}
	for _, status := range statuses {
		if status.Status != StatusRejected {
			continue
		}
		category := bannerCategory(status.Category)
		banner, ok := banners[category]
		if !ok {
			banner = &ErrorBanner{Category: category}
			banners[category] = banner
		}
		if status.ChainID != 0 && !containsChain(banner.ChainIDs, status.ChainID) {
			banner.ChainIDs = append(banner.ChainIDs, status.ChainID)
		}
		if status.Message != "" {
			banner.Messages = append(banner.Messages, status.Message)
		}
	}

	result := make([]ErrorBanner, 0, len(banners))
	for _, category := range []ErrorCategory{ErrorCategoryConfig, ErrorCategoryRPC, ErrorCategoryProvider} {
		if banner, ok := banners[category]; ok {
			sort.Slice(banner.ChainIDs, func(i, j int) bool { return banner.ChainIDs[i] < banner.ChainIDs[j] })
			result = append(result, *banner)
		}
	}
	return result
}

func bannerCategory(loaderCategory string) ErrorCategory {
	switch loaderCategory {
	case loaderCategoryConfig:
		return ErrorCategoryConfig
	case loaderCategoryBalance, loaderCategoryRPC:
		return ErrorCategoryRPC
	default:
		return ErrorCategoryProvider
	}
}

func containsChain(chains []uint64, chainID uint64) bool {
	for _, c := range chains {
		if c == chainID {
			return true
		}
	}
	return false
}
