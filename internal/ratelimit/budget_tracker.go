// Package ratelimit tracks upstream API credit budgets. Paid providers meter
// by request credits, not requests per second, so the local token-bucket
// limiter in each client is not enough: every process sharing an API key must
// coordinate through Redis to stay inside the plan.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values.
const (
	DefaultTotalBudget    = 300              // credits per window
	DefaultReservedBudget = 100              // reserved for interactive requests
	DefaultWindowSize     = time.Minute      // budget window
	DefaultKeyTTL         = 2 * time.Minute  // TTL for Redis keys (window + buffer)
)

// Redis key prefixes for credit tracking.
const (
	KeyPrefixTotal    = "credits:total:"
	KeyPrefixReserved = "credits:reserved:"
	KeyPrefixShared   = "credits:shared:"
)

// Priority levels for budget allocation.
type Priority int

const (
	// PriorityInteractive is for request-driven fetches (uses reserved budget).
	PriorityInteractive Priority = iota
	// PriorityBackground is for refresh-worker fetches (uses shared budget).
	PriorityBackground
)

// String returns a string representation of the priority level.
func (p Priority) String() string {
	switch p {
	case PriorityInteractive:
		return "interactive"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

type priorityContextKey struct{}

// WithPriority tags a context with a budget priority
func WithPriority(ctx context.Context, p Priority) context.Context {
	return context.WithValue(ctx, priorityContextKey{}, p)
}

// PriorityFromContext returns the tagged priority, defaulting to interactive
func PriorityFromContext(ctx context.Context) Priority {
	if p, ok := ctx.Value(priorityContextKey{}).(Priority); ok {
		return p
	}
	return PriorityInteractive
}

// BudgetTracker coordinates credit consumption for one provider across
// processes using Redis. Interactive requests draw from a reserved pool so a
// busy refresh worker cannot starve the dashboard.
type BudgetTracker struct {
	redis          redis.Cmdable
	provider       string
	totalBudget    int
	reservedBudget int
	sharedBudget   int
	windowSize     time.Duration
	keyTTL         time.Duration
}

// BudgetTrackerConfig holds configuration for the budget tracker.
type BudgetTrackerConfig struct {
	// Redis is the client for cross-process coordination. Required.
	Redis redis.Cmdable

	// Provider names the upstream whose budget this tracker guards. Required.
	Provider string

	// TotalBudget is the total credits per window. Default: 300.
	TotalBudget int

	// ReservedBudget is the credits reserved for interactive requests.
	// Default: 100.
	ReservedBudget int

	// WindowSize is the budget window. Default: 1m.
	WindowSize time.Duration

	// KeyTTL is the TTL for Redis keys. Should be at least WindowSize.
	KeyTTL time.Duration
}

// Validate checks if the configuration is valid.
func (c *BudgetTrackerConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.Provider == "" {
		return errors.New("provider name is required")
	}
	if c.TotalBudget < 0 {
		return errors.New("total budget cannot be negative")
	}
	if c.ReservedBudget < 0 {
		return errors.New("reserved budget cannot be negative")
	}

	totalBudget := c.TotalBudget
	if totalBudget == 0 {
		totalBudget = DefaultTotalBudget
	}
	reservedBudget := c.ReservedBudget
	if reservedBudget == 0 {
		reservedBudget = DefaultReservedBudget
	}

	if reservedBudget > totalBudget {
		return fmt.Errorf("reserved budget (%d) cannot exceed total budget (%d)", reservedBudget, totalBudget)
	}

	return nil
}

// NewBudgetTracker creates a new tracker with the given configuration.
func NewBudgetTracker(cfg *BudgetTrackerConfig) (*BudgetTracker, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	totalBudget := cfg.TotalBudget
	if totalBudget == 0 {
		totalBudget = DefaultTotalBudget
	}

	reservedBudget := cfg.ReservedBudget
	if reservedBudget == 0 {
		reservedBudget = DefaultReservedBudget
	}

	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}

	keyTTL := cfg.KeyTTL
	if keyTTL == 0 {
		keyTTL = DefaultKeyTTL
	}

	return &BudgetTracker{
		redis:          cfg.Redis,
		provider:       cfg.Provider,
		totalBudget:    totalBudget,
		reservedBudget: reservedBudget,
		sharedBudget:   totalBudget - reservedBudget,
		windowSize:     windowSize,
		keyTTL:         keyTTL,
	}, nil
}

// Provider returns the name of the guarded upstream
func (t *BudgetTracker) Provider() string {
	return t.provider
}

// getWindowTimestamp returns the timestamp for the current window, aligned to
// the window boundary
func (t *BudgetTracker) getWindowTimestamp() int64 {
	return time.Now().Truncate(t.windowSize).UnixMilli()
}

// getKeys returns the Redis keys for the current window.
func (t *BudgetTracker) getKeys(windowTS int64) (totalKey, reservedKey, sharedKey string) {
	suffix := t.provider + ":" + strconv.FormatInt(windowTS, 10)
	totalKey = KeyPrefixTotal + suffix
	reservedKey = KeyPrefixReserved + suffix
	sharedKey = KeyPrefixShared + suffix
	return
}

// consumeScript atomically checks and increments both the total and the pool
// counter so concurrent consumers cannot overshoot the budget
var consumeScript = redis.NewScript(`
	local totalKey = KEYS[1]
	local poolKey = KEYS[2]
	local credits = tonumber(ARGV[1])
	local totalBudget = tonumber(ARGV[2])
	local poolBudget = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local totalUsed = tonumber(redis.call('GET', totalKey) or '0')
	local poolUsed = tonumber(redis.call('GET', poolKey) or '0')

	if totalUsed + credits > totalBudget then
		return {0, totalUsed, poolUsed}
	end
	if poolUsed + credits > poolBudget then
		return {0, totalUsed, poolUsed}
	end

	redis.call('INCRBY', totalKey, credits)
	redis.call('EXPIRE', totalKey, ttl)
	redis.call('INCRBY', poolKey, credits)
	redis.call('EXPIRE', poolKey, ttl)

	return {1, totalUsed + credits, poolUsed + credits}
`)

// TryConsume attempts to consume credits from the pool matching the priority.
//
// Returns:
//   - allowed: true if the consumption was allowed
//   - waitTime: suggested wait before retrying if not allowed
func (t *BudgetTracker) TryConsume(ctx context.Context, credits int, priority Priority) (bool, time.Duration) {
	if credits <= 0 {
		return true, 0
	}

	windowTS := t.getWindowTimestamp()
	totalKey, reservedKey, sharedKey := t.getKeys(windowTS)

	var poolKey string
	var poolBudget int
	if priority == PriorityInteractive {
		poolKey = reservedKey
		poolBudget = t.reservedBudget
	} else {
		poolKey = sharedKey
		poolBudget = t.sharedBudget
	}

	ttlSeconds := int(t.keyTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := consumeScript.Run(ctx, t.redis, []string{totalKey, poolKey},
		credits, t.totalBudget, poolBudget, ttlSeconds).Int64Slice()
	if err != nil {
		// On Redis error, deny to be safe
		return false, t.calculateWaitTime(windowTS)
	}

	if result[0] != 1 {
		return false, t.calculateWaitTime(windowTS)
	}
	return true, 0
}

// calculateWaitTime returns the time until the next window starts.
func (t *BudgetTracker) calculateWaitTime(windowTS int64) time.Duration {
	windowEnd := time.UnixMilli(windowTS).Add(t.windowSize)
	waitTime := time.Until(windowEnd)
	if waitTime < 0 {
		waitTime = 0
	}
	return waitTime + time.Millisecond
}

// UsageStats contains current consumption metrics.
type UsageStats struct {
	Provider       string
	TotalUsed      int
	ReservedUsed   int
	SharedUsed     int
	TotalBudget    int
	ReservedBudget int
	SharedBudget   int
	WindowStart    time.Time
}

// GetUsage returns current credit usage statistics.
func (t *BudgetTracker) GetUsage(ctx context.Context) (*UsageStats, error) {
	windowTS := t.getWindowTimestamp()
	totalKey, reservedKey, sharedKey := t.getKeys(windowTS)

	pipe := t.redis.Pipeline()
	totalCmd := pipe.Get(ctx, totalKey)
	reservedCmd := pipe.Get(ctx, reservedKey)
	sharedCmd := pipe.Get(ctx, sharedKey)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	return &UsageStats{
		Provider:       t.provider,
		TotalUsed:      parseIntOrZero(totalCmd),
		ReservedUsed:   parseIntOrZero(reservedCmd),
		SharedUsed:     parseIntOrZero(sharedCmd),
		TotalBudget:    t.totalBudget,
		ReservedBudget: t.reservedBudget,
		SharedBudget:   t.sharedBudget,
		WindowStart:    time.UnixMilli(windowTS),
	}, nil
}

// parseIntOrZero parses a Redis string command result as int, returning 0 on error.
func parseIntOrZero(cmd *redis.StringCmd) int {
	val, err := cmd.Int()
	if err != nil {
		return 0
	}
	return val
}

// TotalUtilization returns the current total budget utilization as a
// percentage (0-100).
func (t *BudgetTracker) TotalUtilization(ctx context.Context) (float64, error) {
	stats, err := t.GetUsage(ctx)
	if err != nil {
		return 0, err
	}

	if t.totalBudget == 0 {
		return 100, nil
	}

	return float64(stats.TotalUsed) * 100 / float64(t.totalBudget), nil
}
