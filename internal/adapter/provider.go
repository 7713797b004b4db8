// Package adapter implements the upstream provider clients. Each client is a
// black box to the pipeline: it fetches raw records over HTTP and returns
// slices, never letting transport errors leak past the fetch boundary
// unwrapped. Rate limiting, retries, and circuit breaking all live here.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/movement-scanner/internal/errors"
	"github.com/movement-scanner/internal/types"
)

// Provider is one upstream source of raw movement records. Implementations
// return empty slices (not errors) for chains they do not cover.
type Provider interface {
	// Name identifies the provider for logging and breaker stats
	Name() string
	// SupportsChain reports whether the provider covers a chain
	SupportsChain(chain types.ChainID) bool
	// FetchTransfers returns raw token transfer records for a chain
	FetchTransfers(ctx context.Context, chain types.ChainID) ([]types.RawTransfer, error)
	// FetchDexTrades returns raw DEX trade records for a chain
	FetchDexTrades(ctx context.Context, chain types.ChainID) ([]types.RawDexTrade, error)
}

// newHTTPClient builds the shared HTTP client configuration for providers
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// getJSON performs a GET request and decodes the JSON response into dest
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doJSON(client, req, dest)
}

// postJSON performs a POST request with a JSON body and decodes the response
func postJSON(ctx context.Context, client *http.Client, url string, body interface{}, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doJSON(client, req, dest)
}

func doJSON(client *http.Client, req *http.Request, dest interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.NewProviderRateLimitError(req.URL.Host)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, truncate(data, 200))
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n])
}
