package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/movement-scanner/internal/circuitbreaker"
	"github.com/movement-scanner/internal/config"
	"github.com/movement-scanner/internal/retry"
	"github.com/movement-scanner/internal/types"
	"golang.org/x/time/rate"
)

// EtherscanClient fetches ERC20 token transfers for a watchlist of whale
// addresses. Etherscan records carry no labels; USD values are approximated
// only for stablecoins (1:1), everything else reports zero and relies on the
// label-enriched sources for valuation.
type EtherscanClient struct {
	apiKey    string
	baseURL   string
	addresses []string
	client    *http.Client
	limiter   *rate.Limiter
	policy    retry.Policy
	breaker   *circuitbreaker.CircuitBreaker
}

// etherscanTokenTransfer represents an ERC20 token transfer record.
// Etherscan returns every numeric field as a string.
type etherscanTokenTransfer struct {
	Hash            string `json:"hash"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	LogIndex        string `json:"logIndex"`
}

// stablecoinUSD lists symbols approximated 1:1 to USD when Etherscan is the
// only source for a transfer
var stablecoinUSD = map[string]bool{
	"USDT": true, "USDC": true, "DAI": true, "BUSD": true, "TUSD": true,
	"USDP": true, "GUSD": true, "PYUSD": true, "FRAX": true,
}

// NewEtherscanClient creates a new Etherscan API client
func NewEtherscanClient(cfg *config.EtherscanConfig, breakers *circuitbreaker.Manager) *EtherscanClient {
	return &EtherscanClient{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		addresses: cfg.WatchAddresses,
		client:    newHTTPClient(),
		limiter:   rate.NewLimiter(rate.Limit(3), 3), // free tier: 3 req/sec
		policy:    retry.DefaultPolicy(),
		breaker:   breakers.GetOrCreate("etherscan"),
	}
}

// Name identifies the provider
func (c *EtherscanClient) Name() string { return "etherscan" }

// etherscanChainID returns the Etherscan v2 chain id for a chain
func etherscanChainID(chain types.ChainID) (int, bool) {
	switch chain {
	case types.ChainEthereum:
		return 1, true
	case types.ChainBase:
		return 8453, true
	case types.ChainArbitrum:
		return 42161, true
	default:
		return 0, false
	}
}

// SupportsChain reports whether Etherscan covers a chain
func (c *EtherscanClient) SupportsChain(chain types.ChainID) bool {
	_, ok := etherscanChainID(chain)
	return ok
}

// FetchTransfers returns ERC20 transfers for every watchlist address on the
// chain. A failing address degrades to an empty slice for that address; the
// rest of the watchlist still contributes.
func (c *EtherscanClient) FetchTransfers(ctx context.Context, chain types.ChainID) ([]types.RawTransfer, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("etherscan API key not configured")
	}
	chainID, ok := etherscanChainID(chain)
	if !ok {
		return nil, nil
	}

	var all []types.RawTransfer
	for _, address := range c.addresses {
		transfers, err := c.fetchTokenTransfers(ctx, chainID, address)
		if err != nil {
			// Partial degradation: one bad address must not sink the slice
			continue
		}
		all = append(all, transfers...)
	}
	return all, nil
}

// FetchDexTrades returns nothing; Etherscan has no trade-level endpoint
func (c *EtherscanClient) FetchDexTrades(ctx context.Context, chain types.ChainID) ([]types.RawDexTrade, error) {
	return nil, nil
}

// fetchTokenTransfers fetches ERC20 transfers for one address
func (c *EtherscanClient) fetchTokenTransfers(ctx context.Context, chainID int, address string) ([]types.RawTransfer, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	url := fmt.Sprintf("%s?chainid=%d&module=account&action=tokentx&address=%s&sort=desc&apikey=%s",
		c.baseURL, chainID, address, c.apiKey)

	var rawResp struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}

	err := c.breaker.Execute(func() error {
		return c.policy.Do(ctx, "etherscan tokentx", func(ctx context.Context) error {
			return getJSON(ctx, c.client, url, nil, &rawResp)
		})
	})
	if err != nil {
		return nil, err
	}

	if rawResp.Status != "1" {
		// "No transactions found" is a valid empty result, not an error
		if rawResp.Message == "No transactions found" || rawResp.Message == "No records found" {
			return nil, nil
		}
		return nil, fmt.Errorf("etherscan API error: %s", rawResp.Message)
	}

	// Some chains return a string result on empty
	if len(rawResp.Result) > 0 && rawResp.Result[0] == '"' {
		return nil, nil
	}

	var txList []etherscanTokenTransfer
	if err := json.Unmarshal(rawResp.Result, &txList); err != nil {
		return nil, fmt.Errorf("failed to parse token transfers: %w", err)
	}

	transfers := make([]types.RawTransfer, 0, len(txList))
	for _, tx := range txList {
		transfers = append(transfers, c.convertTokenTransfer(tx))
	}
	return transfers, nil
}

// convertTokenTransfer converts an Etherscan record into a raw transfer
func (c *EtherscanClient) convertTokenTransfer(tx etherscanTokenTransfer) types.RawTransfer {
	timestamp, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
	logIndex, _ := strconv.Atoi(tx.LogIndex)
	decimals, _ := strconv.Atoi(tx.TokenDecimal)

	amount := 0.0
	if raw, err := strconv.ParseFloat(tx.Value, 64); err == nil && decimals >= 0 {
		amount = raw / math.Pow10(decimals)
	}

	valueUSD := 0.0
	if stablecoinUSD[strings.ToUpper(tx.TokenSymbol)] {
		valueUSD = amount
	}

	from := tx.From
	to := tx.To
	symbol := tx.TokenSymbol
	contract := tx.ContractAddress

	return types.RawTransfer{
		TransactionHash:  tx.Hash,
		LogIndex:         &logIndex,
		BlockTimestamp:   time.Unix(timestamp, 0).UTC(),
		FromAddress:      &from,
		ToAddress:        &to,
		TokenSymbol:      &symbol,
		TokenAddress:     &contract,
		TransferAmount:   amount,
		TransferValueUSD: valueUSD,
		Source:           types.SourceEtherscan,
	}
}
