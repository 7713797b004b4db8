package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/movement-scanner/internal/types"
)

const (
	defaultResultLimit = 100
	maxResultLimit     = 500
)

// validChains is the set of chain ids accepted in query parameters
var validChains = map[types.ChainID]bool{
	types.ChainEthereum:    true,
	types.ChainBase:        true,
	types.ChainArbitrum:    true,
	types.ChainSolana:      true,
	types.ChainHyperliquid: true,
}

// handleGetMovements handles GET /api/movements
// Query parameters: chains (comma-separated), minUsd, limit
func (s *Server) handleGetMovements(w http.ResponseWriter, r *http.Request) {
	chains, err := s.parseChains(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	minUSD := 0.0
	if raw := r.URL.Query().Get("minUsd"); raw != "" {
		minUSD, err = strconv.ParseFloat(raw, 64)
		if err != nil || minUSD < 0 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "minUsd must be a non-negative number", nil)
			return
		}
	}

	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	movements, err := s.aggregator.GetMovements(r.Context(), chains, minUSD, limit)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"movements": movements,
		"count":     len(movements),
	})
}

// handleGetFlows handles GET /api/flows
// Query parameters: chains (comma-separated), limit
func (s *Server) handleGetFlows(w http.ResponseWriter, r *http.Request) {
	chains, err := s.parseChains(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	flows, err := s.aggregator.GetFlows(r.Context(), chains, limit)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"flows": flows,
		"count": len(flows),
	})
}

// handleProviderStatus handles GET /api/providers/status
func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.aggregator.ProviderStatus(),
	})
}

// parseChains parses the chains query parameter, falling back to the
// configured default selection
func (s *Server) parseChains(r *http.Request) ([]types.ChainID, error) {
	raw := r.URL.Query().Get("chains")
	if raw == "" {
		return s.config.DefaultChains, nil
	}

	parts := strings.Split(raw, ",")
	chains := make([]types.ChainID, 0, len(parts))
	for _, part := range parts {
		chain := types.ChainID(strings.TrimSpace(strings.ToLower(part)))
		if chain == "" {
			continue
		}
		if !validChains[chain] {
			return nil, fmt.Errorf("unsupported chain: %s", chain)
		}
		chains = append(chains, chain)
	}
	if len(chains) == 0 {
		return s.config.DefaultChains, nil
	}
	return chains, nil
}

// parseLimit parses the limit query parameter, applying default and cap
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultResultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > maxResultLimit {
		limit = maxResultLimit
	}
	return limit, nil
}
