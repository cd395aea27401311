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
	celerBaseURL = "https://cbridge-prod2.celer.app"

	celerSlippageTolerance = "500"

	// estimateAmt error codes
	celerErrCodeLiquidityShortage = 6
	celerErrCodeVolumeExceeded    = 1024
)

type celerError struct {
	Code uint32 `json:"code"`
	Msg  string `json:"msg"`
}

type celerEstimateResponse struct {
	Err              *celerError `json:"err"`
	EqValueTokenAmt  string      `json:"eq_value_token_amt"`
	BaseFee          string      `json:"base_fee"`
	PercFee          string      `json:"perc_fee"`
	EstimatedWaitSec uint64      `json:"estimated_wait_sec"`
	VolumeUsed       string      `json:"volume_used"`
	VolumeCap        string      `json:"volume_cap"`
}

// Celer prices transfers through the cBridge liquidity network.
type Celer struct {
	id         topology.ProviderID
	httpClient *thirdparty.HTTPClient
	baseURL    string
}

func NewCeler(id topology.ProviderID) *Celer {
	return NewCelerWithBaseURL(id, celerBaseURL)
}

func NewCelerWithBaseURL(id topology.ProviderID, baseURL string) *Celer {
	return &Celer{
		id:         id,
		httpClient: thirdparty.NewHTTPClient(),
		baseURL:    baseURL,
	}
}

func (c *Celer) Name() topology.ProviderID {
	return c.id
}

func (c *Celer) estimateAmt(ctx context.Context, params QuoteParams) (*celerEstimateResponse, error) {
	values := url.Values{}
	values.Add("src_chain_id", strconv.FormatUint(params.FromChain, 10))
	values.Add("dst_chain_id", strconv.FormatUint(params.ToChain, 10))
	values.Add("token_symbol", params.FromToken.Symbol)
	values.Add("amt", params.AmountIn.String())
	values.Add("usr_addr", params.FromAddr.Hex())
	values.Add("slippage_tolerance", celerSlippageTolerance)

	response, err := c.httpClient.DoGetRequest(ctx, fmt.Sprintf("%s/v2/estimateAmt", c.baseURL), values, nil)
	if err != nil {
		return nil, err
	}

	var res celerEstimateResponse
	if err := json.Unmarshal(response, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Celer) FetchQuote(ctx context.Context, params QuoteParams) (*Quote, error) {
	res, err := c.estimateAmt(ctx, params)
	if err != nil {
		return nil, err
	}

	if res.Err != nil && res.Err.Code != celerErrCodeVolumeExceeded {
		return nil, errors.New(res.Err.Msg)
	}

	amountOut, ok := new(big.Int).SetString(res.EqValueTokenAmt, 10)
	if !ok {
		return nil, errors.New("failed to parse estimated amount")
	}
	baseFee, ok := new(big.Int).SetString(res.BaseFee, 10)
	if !ok {
		return nil, errors.New("failed to parse base fee")
	}
	percFee, ok := new(big.Int).SetString(res.PercFee, 10)
	if !ok {
		return nil, errors.New("failed to parse percentage fee")
	}

	quote := &Quote{
		ID:            uuid.New().String(),
		ProviderID:    c.id,
		FromChain:     params.FromChain,
		ToChain:       params.ToChain,
		FromToken:     params.FromToken,
		ToToken:       params.ToToken,
		AmountIn:      (*hexutil.Big)(new(big.Int).Set(params.AmountIn)),
		AmountOut:     (*hexutil.Big)(amountOut),
		Fee:           (*hexutil.Big)(new(big.Int).Add(baseFee, percFee)),
		FeeToken:      params.ToToken,
		EstimatedTime: res.EstimatedWaitSec,
		Receiver:      params.ToAddr,
	}

	if res.Err != nil {
		// volume ceiling hit, quote is informational only
		used, usedOK := new(big.Int).SetString(res.VolumeUsed, 10)
		if !usedOK {
			used = big.NewInt(0)
		}
		volumeCap, capOK := new(big.Int).SetString(res.VolumeCap, 10)
		if !capOK {
			return nil, errors.New(res.Err.Msg)
		}
		return nil, &LimitExceededError{
			Quote:   quote,
			Current: used,
			Max:     volumeCap,
			CanWait: true,
		}
	}

	return quote, nil
}
