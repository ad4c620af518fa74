package ratelimit

import (
	"context"
	"fmt"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// FailurePolicy decides what the limiter does when the shared store is
// unreachable. This is a deployment choice, never an implicit default.
type FailurePolicy string

const (
	// FailOpen admits all traffic when the store is down.
	FailOpen FailurePolicy = "open"
	// FailClosed rejects all traffic when the store is down.
	FailClosed FailurePolicy = "closed"
)

const defaultKeyPrefix = "ratelimit:submit:"

// Config holds token bucket parameters, fixed per deployment.
type Config struct {
	// Capacity is the bucket size C.
	Capacity int64 `yaml:"capacity"`
	// RefillTokens is R: tokens restored per RefillInterval.
	RefillTokens int64 `yaml:"refillTokens"`
	// RefillInterval is I. Effective rate is one token every I/R.
	RefillInterval time.Duration `yaml:"refillInterval"`
	// IdleTTL evicts buckets untouched for this long. Bucket state is
	// disposable and rebuilt full on next access.
	IdleTTL time.Duration `yaml:"idleTTL"`
	// FailurePolicy is applied when the store cannot be reached.
	FailurePolicy FailurePolicy `yaml:"failurePolicy"`
	// KeyPrefix namespaces bucket keys in the shared store.
	KeyPrefix string `yaml:"keyPrefix"`
}

// Decision is the outcome of one admission attempt.
type Decision struct {
	Allowed    bool
	Remaining  int64 // post-deduction tokens; -1 when unknown (store failure)
	RetryAfter time.Duration
}

// admitScript runs the whole refill-and-deduct cycle server side, so
// concurrent admissions for the same key serialize on the store and can
// never double-spend a token. Refill is continuous (greedy): accrued
// tokens are computed lazily from elapsed time, capped at capacity, and
// the watermark advances only by whole tokens.
const admitScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_tokens = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local now_ms = tonumber(ARGV[4])
local idle_ttl_ms = tonumber(ARGV[5])

local bucket = redis.call("HMGET", key, "tokens", "refilled_at")
local tokens = tonumber(bucket[1])
local refilled_at = tonumber(bucket[2])
if tokens == nil or refilled_at == nil then
  tokens = capacity
  refilled_at = now_ms
end

local elapsed = now_ms - refilled_at
if elapsed > 0 then
  local accrued = math.floor(elapsed * refill_tokens / interval_ms)
  if accrued > 0 then
    if tokens + accrued >= capacity then
      tokens = capacity
      refilled_at = now_ms
    else
      tokens = tokens + accrued
      refilled_at = refilled_at + math.floor(accrued * interval_ms / refill_tokens)
    end
  end
end

local allowed = 0
local retry_after_s = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  local per_token_ms = interval_ms / refill_tokens
  local wait_ms = per_token_ms - (now_ms - refilled_at)
  if wait_ms < 0 then
    wait_ms = 0
  end
  retry_after_s = math.ceil(wait_ms / 1000)
end

redis.call("HSET", key, "tokens", tokens, "refilled_at", refilled_at)
redis.call("PEXPIRE", key, idle_ttl_ms)
return {allowed, tokens, retry_after_s}
`

// Limiter is a distributed token bucket. All instances share bucket state
// through the store, so admissions made by different instances draw from
// the same budget.
type Limiter struct {
	store cache.ScriptOps
	cfg   Config
	now   func() time.Time
}

// NewLimiter creates a limiter backed by the given script-capable store.
func NewLimiter(store cache.ScriptOps, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10
	}
	if cfg.RefillTokens <= 0 {
		cfg.RefillTokens = 10
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * cfg.RefillInterval
	}
	switch cfg.FailurePolicy {
	case FailOpen, FailClosed:
	case "":
		cfg.FailurePolicy = FailOpen
	default:
		return nil, fmt.Errorf("unknown failure policy %q", cfg.FailurePolicy)
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	return &Limiter{store: store, cfg: cfg, now: time.Now}, nil
}

// Admit attempts to deduct one token for clientKey. The returned Decision
// is always usable; err reports a store failure that the configured
// FailurePolicy has already been applied to.
func (l *Limiter) Admit(ctx context.Context, clientKey string) (Decision, error) {
	if clientKey == "" {
		return Decision{}, fmt.Errorf("client key is required")
	}
	nowMS := l.now().UnixMilli()
	result, err := l.store.Eval(
		ctx,
		admitScript,
		[]string{l.cfg.KeyPrefix + clientKey},
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		nowMS,
		l.cfg.IdleTTL.Milliseconds(),
	)
	if err != nil {
		logger.Warn(ctx, "rate limit store unreachable",
			zap.String("policy", string(l.cfg.FailurePolicy)),
			zap.Error(err),
		)
		if l.cfg.FailurePolicy == FailOpen {
			return Decision{Allowed: true, Remaining: -1}, err
		}
		return Decision{Allowed: false, Remaining: -1, RetryAfter: l.perToken()}, err
	}

	allowed, remaining, retryAfterS, parseErr := parseAdmitReply(result)
	if parseErr != nil {
		return Decision{Allowed: l.cfg.FailurePolicy == FailOpen, Remaining: -1}, parseErr
	}
	return Decision{
		Allowed:    allowed,
		Remaining:  remaining,
		RetryAfter: time.Duration(retryAfterS) * time.Second,
	}, nil
}

func (l *Limiter) perToken() time.Duration {
	return l.cfg.RefillInterval / time.Duration(l.cfg.RefillTokens)
}

func parseAdmitReply(result interface{}) (allowed bool, remaining, retryAfterS int64, err error) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected admit script reply: %v", result)
	}
	nums := make([]int64, 3)
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return false, 0, 0, fmt.Errorf("unexpected admit script reply element: %v", v)
		}
		nums[i] = n
	}
	return nums[0] == 1, nums[1], nums[2], nil
}
