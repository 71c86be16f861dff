package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/httpx"
	"github.com/asterion-dev/tradepath/internal/token"
)

const defaultSlippageBps = 100

// Aggregator fetches firm quotes from a 0x-style swap API.
type Aggregator struct {
	http         *httpx.Client
	baseURL      string
	apiKey       string
	registry     *token.Registry
	feeBps       int64
	feeRecipient string
}

func NewAggregator(httpClient *httpx.Client, baseURL, apiKey string, registry *token.Registry) *Aggregator {
	return &Aggregator{
		http:     httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		registry: registry,
	}
}

// WithIntegratorFee routes a fee to recipient on every quote, in basis points
// of the fee token.
func (a *Aggregator) WithIntegratorFee(bps int64, recipient string) *Aggregator {
	a.feeBps = bps
	a.feeRecipient = recipient
	return a
}

type aggregatorResponse struct {
	BuyAmount    string `json:"buyAmount"`
	MinBuyAmount string `json:"minBuyAmount"`
	Route        struct {
		Fills []struct {
			Source string `json:"source"`
		} `json:"fills"`
	} `json:"route"`
	Fees struct {
		ZeroExFee struct {
			Amount string `json:"amount"`
		} `json:"zeroExFee"`
		IntegratorFee struct {
			Amount string `json:"amount"`
		} `json:"integratorFee"`
		GasFee struct {
			Amount string `json:"amount"`
		} `json:"gasFee"`
	} `json:"fees"`
	Transaction Transaction `json:"transaction"`
	Permit2     *Permit2    `json:"permit2"`
	Issues      struct {
		Allowance *struct {
			Spender string `json:"spender"`
		} `json:"allowance"`
	} `json:"issues"`
}

func (a *Aggregator) GetQuote(ctx context.Context, req Request) (Quote, error) {
	if err := validateRequest(req); err != nil {
		return Quote{}, err
	}
	if a.apiKey == "" {
		return Quote{}, tperr.New(tperr.KindValidation, "aggregator API key is not configured")
	}
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = defaultSlippageBps
	}

	vals := url.Values{}
	vals.Set("sellToken", req.SellToken.Address)
	vals.Set("buyToken", req.BuyToken.Address)
	vals.Set("sellAmount", req.SellAmount)
	vals.Set("chainId", strconv.FormatInt(req.SellToken.ChainID, 10))
	vals.Set("taker", req.Taker)
	vals.Set("slippageBps", strconv.FormatInt(slippage, 10))
	if a.feeBps > 0 && a.feeRecipient != "" {
		vals.Set("swapFeeToken", a.feeToken(req).Address)
		vals.Set("swapFeeBps", strconv.FormatInt(a.feeBps, 10))
		vals.Set("swapFeeRecipient", a.feeRecipient)
	}

	reqURL := fmt.Sprintf("%s/swap/allowance-holder/quote?%s", a.baseURL, vals.Encode())
	hReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Quote{}, tperr.Wrap(tperr.KindInternal, "build quote request", err)
	}
	hReq.Header.Set("0x-api-key", a.apiKey)
	hReq.Header.Set("0x-version", "v2")

	var resp aggregatorResponse
	if _, err := a.http.DoJSON(ctx, hReq, &resp); err != nil {
		return Quote{}, tperr.Reclassify(tperr.KindQuoteUnavailable, "fetch swap quote", err)
	}
	if resp.BuyAmount == "" || resp.Transaction.To == "" {
		return Quote{}, tperr.New(tperr.KindQuoteUnavailable, "aggregator returned incomplete quote")
	}

	out := Quote{
		SellToken:    req.SellToken,
		BuyToken:     req.BuyToken,
		SellAmount:   req.SellAmount,
		BuyAmount:    resp.BuyAmount,
		MinBuyAmount: resp.MinBuyAmount,
		Route:        routeSummary(resp),
		Fees: Fees{
			ZeroExFee:     resp.Fees.ZeroExFee.Amount,
			IntegratorFee: resp.Fees.IntegratorFee.Amount,
			GasFee:        resp.Fees.GasFee.Amount,
		},
		Transaction: resp.Transaction,
		Permit2:     resp.Permit2,
	}
	if resp.Issues.Allowance != nil {
		out.AllowanceTarget = token.NormalizeAddress(resp.Issues.Allowance.Spender)
	}
	return out, nil
}

// feeToken prefers whichever side of the pair is a configured stablecoin so
// collected fees do not need their own conversion, defaulting to the sell
// token.
func (a *Aggregator) feeToken(req Request) token.Ref {
	if a.registry != nil {
		if a.registry.IsStablecoin(req.SellToken) {
			return req.SellToken
		}
		if a.registry.IsStablecoin(req.BuyToken) {
			return req.BuyToken
		}
	}
	return req.SellToken
}

func validateRequest(req Request) error {
	if req.SellToken.Address == "" || req.BuyToken.Address == "" {
		return tperr.New(tperr.KindValidation, "quote requires sell and buy token addresses")
	}
	if req.SellToken.ChainID != req.BuyToken.ChainID {
		return tperr.New(tperr.KindValidation, "quote tokens must be on the same chain")
	}
	if _, err := token.ParseBaseUnits(req.SellAmount); err != nil {
		return err
	}
	if strings.TrimSpace(req.Taker) == "" {
		return tperr.New(tperr.KindValidation, "quote requires a taker address")
	}
	return nil
}

func routeSummary(resp aggregatorResponse) string {
	if len(resp.Route.Fills) == 0 {
		return ""
	}
	sources := make([]string, 0, len(resp.Route.Fills))
	for _, fill := range resp.Route.Fills {
		sources = append(sources, fill.Source)
	}
	return strings.Join(sources, "+")
}

var _ Provider = (*Aggregator)(nil)
