package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/status-im/bridge-go/thirdparty"
	"github.com/status-im/bridge-go/topology"
)

const (
	hopBaseURL = "https://api.hop.exchange"

	hopSlippageBps = "50"

	// relay through the bonder network settles within minutes
	hopDefaultWaitSec = 300
)

type hopQuoteResponse struct {
	AmountIn          string `json:"amountIn"`
	AmountOutMin      string `json:"amountOutMin"`
	BonderFee         string `json:"bonderFee"`
	EstimatedReceived string `json:"estimatedRecieved"`
	Error             string `json:"error,omitempty"`
}

// Hop prices transfers through the Hop bonder network.
type Hop struct {
	id         topology.ProviderID
	httpClient *thirdparty.HTTPClient
	baseURL    string
}

func NewHop(id topology.ProviderID) *Hop {
	return NewHopWithBaseURL(id, hopBaseURL)
}

func NewHopWithBaseURL(id topology.ProviderID, baseURL string) *Hop {
	return &Hop{
		id:         id,
		httpClient: thirdparty.NewHTTPClient(),
		baseURL:    baseURL,
	}
}

func (h *Hop) Name() topology.ProviderID {
	return h.id
}

func (h *Hop) FetchQuote(ctx context.Context, params QuoteParams) (*Quote, error) {
	values := url.Values{}
	values.Add("fromChain", strconv.FormatUint(params.FromChain, 10))
	values.Add("toChain", strconv.FormatUint(params.ToChain, 10))
	values.Add("token", params.FromToken.Symbol)
	values.Add("amount", params.AmountIn.String())
	values.Add("slippage", hopSlippageBps)

	response, err := h.httpClient.DoGetRequest(ctx, fmt.Sprintf("%s/v1/quote", h.baseURL), values, nil)
	if err != nil {
		return nil, err
	}

	var res hopQuoteResponse
	if err := json.Unmarshal(response, &res); err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, errors.New(res.Error)
	}

	estimatedReceived, ok := new(big.Int).SetString(res.EstimatedReceived, 10)
	if !ok {
		return nil, errors.New("failed to parse estimated received amount")
	}
	bonderFee, ok := new(big.Int).SetString(res.BonderFee, 10)
	if !ok {
		return nil, errors.New("failed to parse bonder fee")
	}

	// the bonder fee eating the whole transfer means the amount is too low
	// for this route, not that the route is limited
	if bonderFee.Cmp(params.AmountIn) >= 0 {
		return nil, errors.New("bonder fee greater than sent amount, a higher amount is needed to cover fees")
	}

	return &Quote{
		ID:            uuid.New().String(),
		ProviderID:    h.id,
		FromChain:     params.FromChain,
		ToChain:       params.ToChain,
		FromToken:     params.FromToken,
		ToToken:       params.ToToken,
		AmountIn:      (*hexutil.Big)(new(big.Int).Set(params.AmountIn)),
		AmountOut:     (*hexutil.Big)(new(big.Int).Add(estimatedReceived, bonderFee)),
		Fee:           (*hexutil.Big)(bonderFee),
		FeeToken:      params.ToToken,
		EstimatedTime: hopDefaultWaitSec,
		Receiver:      params.ToAddr,
	}, nil
}
