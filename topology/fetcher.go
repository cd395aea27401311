package topology

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/pkg/errors"

	"github.com/status-im/bridge-go/thirdparty"
)

const fetchRetryMaxElapsed = 30 * time.Second

// Fetcher retrieves the bridge topology from its source.
type Fetcher interface {
	FetchBridgeConfig(ctx context.Context) (*BridgeConfig, error)
}

// HTTPFetcher loads the bridge config from an HTTP/JSON endpoint, retrying
// transient failures with exponential backoff.
type HTTPFetcher struct {
	httpClient *thirdparty.HTTPClient
	url        string
	creds      *thirdparty.BasicCreds
}

func NewHTTPFetcher(url string, creds *thirdparty.BasicCreds) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: thirdparty.NewHTTPClient(),
		url:        url,
		creds:      creds,
	}
}

func (f *HTTPFetcher) FetchBridgeConfig(ctx context.Context) (*BridgeConfig, error) {
	var response []byte

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = fetchRetryMaxElapsed
	err := backoff.Retry(func() error {
		var err error
		response, err = f.httpClient.DoGetRequest(ctx, f.url, nil, f.creds)
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, errors.Wrap(err, "fetching bridge config")
	}

	var config BridgeConfig
	if err := json.Unmarshal(response, &config); err != nil {
		return nil, errors.Wrap(err, "parsing bridge config")
	}

	return &config, nil
}
