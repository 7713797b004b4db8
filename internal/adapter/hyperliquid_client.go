package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/movement-scanner/internal/circuitbreaker"
	"github.com/movement-scanner/internal/config"
	"github.com/movement-scanner/internal/retry"
	"github.com/movement-scanner/internal/types"
	"golang.org/x/time/rate"
)

// HyperliquidClient fetches recent trades from the Hyperliquid info API.
// Hyperliquid is an on-chain orderbook, so fills surface as DEX trades on the
// venue's own chain.
type HyperliquidClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	policy  retry.Policy
	breaker *circuitbreaker.CircuitBreaker
}

// hyperliquidTrade mirrors one fill from the info API. Numeric fields arrive
// as strings; Time is unix milliseconds.
type hyperliquidTrade struct {
	Coin  string    `json:"coin"`
	Side  string    `json:"side"`
	Px    string    `json:"px"`
	Sz    string    `json:"sz"`
	Time  int64     `json:"time"`
	Hash  string    `json:"hash"`
	Users [2]string `json:"users"`
}

// NewHyperliquidClient creates a Hyperliquid info API client
func NewHyperliquidClient(cfg *config.HyperliquidConfig, breakers *circuitbreaker.Manager) *HyperliquidClient {
	return &HyperliquidClient{
		baseURL: cfg.BaseURL,
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		policy:  retry.DefaultPolicy(),
		breaker: breakers.GetOrCreate("hyperliquid"),
	}
}

// Name identifies the provider
func (c *HyperliquidClient) Name() string { return "hyperliquid" }

// SupportsChain reports whether the provider covers a chain
func (c *HyperliquidClient) SupportsChain(chain types.ChainID) bool {
	return chain == types.ChainHyperliquid
}

// FetchTransfers returns nothing; Hyperliquid exposes fills, not transfers
func (c *HyperliquidClient) FetchTransfers(ctx context.Context, chain types.ChainID) ([]types.RawTransfer, error) {
	return nil, nil
}

// trackedCoins are the markets polled for large fills
var trackedCoins = []string{"BTC", "ETH", "SOL", "HYPE"}

// FetchDexTrades returns recent fills across the tracked markets
func (c *HyperliquidClient) FetchDexTrades(ctx context.Context, chain types.ChainID) ([]types.RawDexTrade, error) {
	if chain != types.ChainHyperliquid {
		return nil, nil
	}

	var all []types.RawDexTrade
	for _, coin := range trackedCoins {
		trades, err := c.fetchRecentTrades(ctx, coin)
		if err != nil {
			// One failing market must not sink the rest
			continue
		}
		all = append(all, trades...)
	}
	return all, nil
}

// fetchRecentTrades fetches the recent fills for one market
func (c *HyperliquidClient) fetchRecentTrades(ctx context.Context, coin string) ([]types.RawDexTrade, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	url := c.baseURL + "/info"
	body := map[string]string{"type": "recentTrades", "coin": coin}

	var fills []hyperliquidTrade
	err := c.breaker.Execute(func() error {
		return c.policy.Do(ctx, "hyperliquid recentTrades", func(ctx context.Context) error {
			return postJSON(ctx, c.client, url, body, &fills)
		})
	})
	if err != nil {
		return nil, err
	}

	trades := make([]types.RawDexTrade, 0, len(fills))
	for _, f := range fills {
		px, err := strconv.ParseFloat(f.Px, 64)
		if err != nil {
			continue
		}
		sz, err := strconv.ParseFloat(f.Sz, 64)
		if err != nil {
			continue
		}

		// The buyer is users[0] on a buy fill, users[1] on a sell fill
		trader := f.Users[0]
		if f.Side == "A" {
			trader = f.Users[1]
		}

		trades = append(trades, types.RawDexTrade{
			TransactionHash:   f.Hash,
			BlockTimestamp:    time.UnixMilli(f.Time).UTC(),
			Chain:             types.ChainHyperliquid,
			TraderAddress:     trader,
			TokenBoughtSymbol: f.Coin,
			TradeValueUSD:     px * sz,
			DexName:           "Hyperliquid",
			Source:            types.SourceHyperliquid,
		})
	}
	return trades, nil
}
