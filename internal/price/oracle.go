// Package price resolves relative token amounts through a USD price service.
package price

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asterion-dev/tradepath/internal/cache"
	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/httpx"
	"github.com/asterion-dev/tradepath/internal/token"
)

const defaultCacheTTL = 90 * time.Second

// Oracle converts amounts between tokens via their USD prices. Conversion is
// pure over the fetched data: all arithmetic uses big.Rat, truncating to the
// target token's decimals.
type Oracle struct {
	http     *httpx.Client
	baseURL  string
	registry *token.Registry
	cache    *cache.Store
	cacheTTL time.Duration
}

func NewOracle(httpClient *httpx.Client, baseURL string, registry *token.Registry, cacheStore *cache.Store) *Oracle {
	return &Oracle{
		http:     httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		registry: registry,
		cache:    cacheStore,
		cacheTTL: defaultCacheTTL,
	}
}

// Convert returns amountBaseUnits of src expressed in dst base units, rounded
// down to dst's decimal precision.
func (o *Oracle) Convert(ctx context.Context, src, dst token.Ref, amountBaseUnits string) (string, error) {
	amount, err := token.ParseBaseUnits(amountBaseUnits)
	if err != nil {
		return "", err
	}
	if amount.Sign() == 0 {
		return "0", nil
	}

	// Price services do not quote the native asset; use the wrapped token.
	srcPriced, err := o.registry.WrapNative(src)
	if err != nil {
		return "", err
	}
	dstPriced, err := o.registry.WrapNative(dst)
	if err != nil {
		return "", err
	}

	var srcUSD, dstUSD *big.Rat
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := o.usdPrice(gctx, srcPriced)
		if err != nil {
			return err
		}
		srcUSD = p
		return nil
	})
	g.Go(func() error {
		p, err := o.usdPrice(gctx, dstPriced)
		if err != nil {
			return err
		}
		dstUSD = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	if dstUSD.Sign() == 0 {
		return "", tperr.New(tperr.KindPriceUnavailable, "target token has zero USD price")
	}

	// amount in source units -> human decimal -> USD -> target decimal.
	srcScale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(src.Decimals)), nil)
	humanAmount := new(big.Rat).SetFrac(amount, srcScale)
	out := new(big.Rat).Mul(humanAmount, srcUSD)
	out.Quo(out, dstUSD)
	return token.RatToBaseUnits(out, dst.Decimals), nil
}

// TokenAmountForUSD converts a USD-denominated order size into base units of
// ref, rounded down to ref's decimal precision.
func (o *Oracle) TokenAmountForUSD(ctx context.Context, ref token.Ref, usdAmount string) (string, error) {
	usd, ok := new(big.Rat).SetString(strings.TrimSpace(usdAmount))
	if !ok || usd.Sign() < 0 {
		return "", tperr.New(tperr.KindValidation, "usd amount must be a non-negative decimal")
	}
	if usd.Sign() == 0 {
		return "0", nil
	}
	priced, err := o.registry.WrapNative(ref)
	if err != nil {
		return "", err
	}
	p, err := o.usdPrice(ctx, priced)
	if err != nil {
		return "", err
	}
	out := new(big.Rat).Quo(usd, p)
	return token.RatToBaseUnits(out, ref.Decimals), nil
}

// USDPrice returns the USD price of a single token as a decimal string, for
// callers that render price summaries.
func (o *Oracle) USDPrice(ctx context.Context, ref token.Ref) (string, error) {
	priced, err := o.registry.WrapNative(ref)
	if err != nil {
		return "", err
	}
	p, err := o.usdPrice(ctx, priced)
	if err != nil {
		return "", err
	}
	return p.FloatString(18), nil
}

type priceResponse struct {
	Price string `json:"price"`
}

func (o *Oracle) usdPrice(ctx context.Context, ref token.Ref) (*big.Rat, error) {
	key := "price|" + ref.CacheKey()
	if o.cache != nil {
		if res, err := o.cache.Get(key); err == nil && res.Hit {
			if p, ok := new(big.Rat).SetString(string(res.Value)); ok {
				return p, nil
			}
		}
	}

	vals := url.Values{}
	vals.Set("address", ref.Address)
	vals.Set("chainId", strconv.FormatInt(ref.ChainID, 10))
	reqURL := fmt.Sprintf("%s/v1/price?%s", o.baseURL, vals.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, tperr.Wrap(tperr.KindInternal, "build price request", err)
	}

	var resp priceResponse
	if _, err := o.http.DoJSON(ctx, req, &resp); err != nil {
		if typed, ok := tperr.As(err); ok && typed.Kind == tperr.KindValidation {
			// A definitive "no price" answer, not a transient failure.
			return nil, tperr.New(tperr.KindPriceUnavailable, "price service has no price for token")
		}
		return nil, tperr.Reclassify(tperr.KindPriceUnavailable, "fetch token price", err)
	}
	price, ok := new(big.Rat).SetString(strings.TrimSpace(resp.Price))
	if !ok || price.Sign() <= 0 {
		return nil, tperr.New(tperr.KindPriceUnavailable, "price service returned no usable price")
	}

	if o.cache != nil {
		_ = o.cache.Set(key, []byte(price.RatString()), o.cacheTTL)
	}
	return price, nil
}
