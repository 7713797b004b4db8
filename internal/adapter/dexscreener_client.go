package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/movement-scanner/internal/circuitbreaker"
	"github.com/movement-scanner/internal/config"
	"github.com/movement-scanner/internal/retry"
	"github.com/movement-scanner/internal/types"
	"golang.org/x/time/rate"
)

// minStitchedVolumeUSD filters out pairs too quiet to be worth stitching
const minStitchedVolumeUSD = 250_000

// DexScreenerClient stitches trending-pair activity into trade-shaped records.
// DexScreener aggregates pair-level volume, not individual fills, so each
// trending pair becomes one synthetic record keyed by its pair address.
type DexScreenerClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	policy  retry.Policy
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
}

// dexScreenerPair mirrors one pair from the search response
type dexScreenerPair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Volume struct {
		H1 float64 `json:"h1"`
	} `json:"volume"`
}

type dexScreenerSearchResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

// NewDexScreenerClient creates a DexScreener API client
func NewDexScreenerClient(cfg *config.DexScreenerConfig, breakers *circuitbreaker.Manager) *DexScreenerClient {
	return &DexScreenerClient{
		baseURL: cfg.BaseURL,
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Limit(5), 5), // 300 req/min documented limit
		policy:  retry.DefaultPolicy(),
		breaker: breakers.GetOrCreate("dexscreener"),
		now:     time.Now,
	}
}

// Name identifies the provider
func (c *DexScreenerClient) Name() string { return "dexscreener" }

// dexScreenerChain maps internal chain ids to DexScreener chain ids
func dexScreenerChain(chain types.ChainID) (string, bool) {
	switch chain {
	case types.ChainEthereum:
		return "ethereum", true
	case types.ChainBase:
		return "base", true
	case types.ChainArbitrum:
		return "arbitrum", true
	case types.ChainSolana:
		return "solana", true
	default:
		return "", false
	}
}

// SupportsChain reports whether DexScreener covers a chain
func (c *DexScreenerClient) SupportsChain(chain types.ChainID) bool {
	_, ok := dexScreenerChain(chain)
	return ok
}

// FetchTransfers returns nothing; DexScreener has no transfer data
func (c *DexScreenerClient) FetchTransfers(ctx context.Context, chain types.ChainID) ([]types.RawTransfer, error) {
	return nil, nil
}

// FetchDexTrades returns stitched records for the chain's trending pairs.
// Pairs below the hourly volume floor are dropped.
func (c *DexScreenerClient) FetchDexTrades(ctx context.Context, chain types.ChainID) ([]types.RawDexTrade, error) {
	screenerChain, ok := dexScreenerChain(chain)
	if !ok {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	url := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, screenerChain)

	var resp dexScreenerSearchResponse
	err := c.breaker.Execute(func() error {
		return c.policy.Do(ctx, "dexscreener search", func(ctx context.Context) error {
			return getJSON(ctx, c.client, url, nil, &resp)
		})
	})
	if err != nil {
		return nil, err
	}

	observedAt := c.now().UTC()
	trades := make([]types.RawDexTrade, 0, len(resp.Pairs))
	for _, p := range resp.Pairs {
		if p.ChainID != screenerChain || p.Volume.H1 < minStitchedVolumeUSD {
			continue
		}
		// The pair address stands in for a transaction hash so stitched
		// records dedup against themselves across refreshes
		trades = append(trades, types.RawDexTrade{
			TransactionHash:    p.PairAddress,
			BlockTimestamp:     observedAt,
			Chain:              chain,
			TraderAddress:      p.PairAddress,
			TokenBoughtSymbol:  p.BaseToken.Symbol,
			TokenBoughtAddress: p.BaseToken.Address,
			TradeValueUSD:      p.Volume.H1,
			DexName:            p.DexID,
			Source:             types.SourceStitched,
		})
	}
	return trades, nil
}
