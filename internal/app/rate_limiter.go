package app

import (
	"context"
	"fmt"
	"time"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/cache"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/metrics"
)

// Scope selects how rate-limit counters are keyed.
type Scope string

const (
	// ScopeUserActivity limits one caller's attempts against one activity.
	ScopeUserActivity Scope = "user_activity"
	// ScopeGlobal limits all traffic through an endpoint.
	ScopeGlobal Scope = "global"
)

// LimitRule is a sliding window expressed as a fixed TTL set on the first
// increment within the window.
type LimitRule struct {
	Limit  int
	Window time.Duration
}

type RateLimiter struct {
	store   cache.Store
	rules   map[Scope]LimitRule
	metrics *metrics.Metrics
}

func NewRateLimiter(store cache.Store, rules map[Scope]LimitRule, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{store: store, rules: rules, metrics: m}
}

// Check admits or rejects one request under the given scope. It runs before
// any business logic and applies no side effect beyond the window counter.
// Unknown or unconfigured scopes reject with ErrValidation.
func (l *RateLimiter) Check(ctx context.Context, scope Scope, userID, activityID int64) error {
	rule, ok := l.rules[scope]
	if !ok {
		return fmt.Errorf("%w: unsupported rate-limit scope %q", domain.ErrValidation, scope)
	}

	var key string
	switch scope {
	case ScopeUserActivity:
		if userID <= 0 || activityID <= 0 {
			return fmt.Errorf("%w: rate-limit scope %q needs user and activity", domain.ErrValidation, scope)
		}
		key = rateLimitKey("userActivity", userID, activityID)
	case ScopeGlobal:
		key = rateLimitKey("global")
	default:
		return fmt.Errorf("%w: unsupported rate-limit scope %q", domain.ErrValidation, scope)
	}

	return l.CheckKey(ctx, key, rule.Limit, rule.Window)
}

// CheckKey applies the window counter for an explicit key. The first increment
// in a window arms the TTL; exceeding the limit rejects without further side
// effects.
func (l *RateLimiter) CheckKey(ctx context.Context, key string, limit int, window time.Duration) error {
	count, err := l.store.IncrBy(ctx, key, 1)
	if err != nil {
		return fmt.Errorf("rate-limit counter %s: %w", key, err)
	}
	if count == 1 {
		if err := l.store.Expire(ctx, key, window); err != nil {
			return fmt.Errorf("rate-limit window %s: %w", key, err)
		}
	}
	if count > int64(limit) {
		l.metrics.Rejections.WithLabelValues("rate_limited").Inc()
		return domain.ErrRateLimited
	}
	return nil
}
