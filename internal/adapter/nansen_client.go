package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/movement-scanner/internal/circuitbreaker"
	"github.com/movement-scanner/internal/config"
	apperrors "github.com/movement-scanner/internal/errors"
	"github.com/movement-scanner/internal/ratelimit"
	"github.com/movement-scanner/internal/retry"
	"github.com/movement-scanner/internal/types"
	"golang.org/x/time/rate"
)

// NansenClient fetches label-enriched token transfers and smart-money DEX
// trades from the Nansen API. Nansen meters by credits, so fetches consume
// from a shared budget tracker on top of the local request limiter.
type NansenClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	policy  retry.Policy
	breaker *circuitbreaker.CircuitBreaker
	budget  *ratelimit.BudgetTracker
}

// nansenTransfer mirrors the Nansen token-flow record shape
type nansenTransfer struct {
	TransactionHash  string   `json:"transaction_hash"`
	LogIndex         *int     `json:"log_index"`
	BlockTimestamp   string   `json:"block_timestamp"`
	FromAddress      *string  `json:"from_address"`
	ToAddress        *string  `json:"to_address"`
	FromLabel        *string  `json:"from_label"`
	ToLabel          *string  `json:"to_label"`
	TokenSymbol      *string  `json:"token_symbol"`
	TokenAddress     *string  `json:"token_address"`
	TransferAmount   float64  `json:"transfer_amount"`
	TransferValueUSD float64  `json:"transfer_value_usd"`
	TransactionType  *string  `json:"transaction_type"`
	ExchangeType     *string  `json:"exchange_type"`
}

type nansenTransferResponse struct {
	Data []nansenTransfer `json:"data"`
}

// nansenDexTrade mirrors the Nansen smart-money DEX trade record shape
type nansenDexTrade struct {
	TransactionHash    string  `json:"transaction_hash"`
	BlockTimestamp     string  `json:"block_timestamp"`
	Chain              string  `json:"chain"`
	TraderAddress      string  `json:"trader_address"`
	TraderLabel        *string `json:"trader_label"`
	SmartMoneyLabel    *string `json:"smart_money_label"`
	TokenBoughtSymbol  string  `json:"token_bought_symbol"`
	TokenBoughtAddress string  `json:"token_bought_address"`
	TradeValueUSD      float64 `json:"trade_value_usd"`
	DexName            string  `json:"dex_name"`
}

type nansenDexTradeResponse struct {
	Data []nansenDexTrade `json:"data"`
}

// NewNansenClient creates a Nansen API client. The budget tracker is
// optional; without it only the local limiter applies.
func NewNansenClient(cfg *config.NansenConfig, breakers *circuitbreaker.Manager, budget *ratelimit.BudgetTracker) *NansenClient {
	return &NansenClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Limit(5), 5), // 5 req/sec API allowance
		policy:  retry.DefaultPolicy(),
		breaker: breakers.GetOrCreate("nansen"),
		budget:  budget,
	}
}

// Name identifies the provider
func (c *NansenClient) Name() string { return "nansen" }

// SupportsChain reports whether Nansen covers a chain
func (c *NansenClient) SupportsChain(chain types.ChainID) bool {
	switch chain {
	case types.ChainEthereum, types.ChainBase, types.ChainArbitrum, types.ChainSolana:
		return true
	default:
		return false
	}
}

// FetchTransfers returns label-enriched token transfers for a chain
func (c *NansenClient) FetchTransfers(ctx context.Context, chain types.ChainID) ([]types.RawTransfer, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("nansen API key not configured")
	}

	url := fmt.Sprintf("%s/token-flows?chain=%s&order_by=value_desc", c.baseURL, chain)

	var resp nansenTransferResponse
	if err := c.fetch(ctx, "nansen transfers", url, &resp); err != nil {
		return nil, err
	}

	transfers := make([]types.RawTransfer, 0, len(resp.Data))
	for _, t := range resp.Data {
		ts, err := parseNansenTime(t.BlockTimestamp)
		if err != nil {
			continue
		}
		transfers = append(transfers, types.RawTransfer{
			TransactionHash:  t.TransactionHash,
			LogIndex:         t.LogIndex,
			BlockTimestamp:   ts,
			FromAddress:      t.FromAddress,
			ToAddress:        t.ToAddress,
			FromLabel:        t.FromLabel,
			ToLabel:          t.ToLabel,
			TokenSymbol:      t.TokenSymbol,
			TokenAddress:     t.TokenAddress,
			TransferAmount:   t.TransferAmount,
			TransferValueUSD: t.TransferValueUSD,
			TransactionType:  t.TransactionType,
			ExchangeType:     t.ExchangeType,
			Source:           types.SourceNansen,
		})
	}
	return transfers, nil
}

// FetchDexTrades returns smart-money DEX trades for a chain
func (c *NansenClient) FetchDexTrades(ctx context.Context, chain types.ChainID) ([]types.RawDexTrade, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("nansen API key not configured")
	}

	url := fmt.Sprintf("%s/smart-money/dex-trades?chain=%s", c.baseURL, chain)

	var resp nansenDexTradeResponse
	if err := c.fetch(ctx, "nansen dex trades", url, &resp); err != nil {
		return nil, err
	}

	trades := make([]types.RawDexTrade, 0, len(resp.Data))
	for _, t := range resp.Data {
		ts, err := parseNansenTime(t.BlockTimestamp)
		if err != nil {
			continue
		}
		trades = append(trades, types.RawDexTrade{
			TransactionHash:    t.TransactionHash,
			BlockTimestamp:     ts,
			Chain:              chain,
			TraderAddress:      t.TraderAddress,
			TraderLabel:        t.TraderLabel,
			SmartMoneyLabel:    t.SmartMoneyLabel,
			TokenBoughtSymbol:  t.TokenBoughtSymbol,
			TokenBoughtAddress: t.TokenBoughtAddress,
			TradeValueUSD:      t.TradeValueUSD,
			DexName:            t.DexName,
			Source:             types.SourceNansen,
		})
	}
	return trades, nil
}

// fetch runs one budget-checked, rate-limited, breaker-guarded, retried GET
func (c *NansenClient) fetch(ctx context.Context, operation, url string, dest interface{}) error {
	if c.budget != nil {
		allowed, wait := c.budget.TryConsume(ctx, 1, ratelimit.PriorityFromContext(ctx))
		if !allowed {
			return fmt.Errorf("nansen credit budget exhausted, retry in %s: %w",
				wait.Round(time.Second), apperrors.NewProviderRateLimitError("nansen"))
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	headers := map[string]string{"apiKey": c.apiKey}
	return c.breaker.Execute(func() error {
		return c.policy.Do(ctx, operation, func(ctx context.Context) error {
			return getJSON(ctx, c.client, url, headers, dest)
		})
	})
}

// parseNansenTime parses the ISO timestamps Nansen returns
func parseNansenTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
