package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// KeyPrefix namespaces counters in the shared cache.
const KeyPrefix = "RateLimit:"

// Store counts requests per key.
type Store interface {
	// Incr increments key and returns the new count. The window opens with the first
	// increment and the count restarts once it has elapsed.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// LimitConfig allows at most Max requests per Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps each scope to the limits applied to it.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy applies to operations without endpoint limits.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeGlobal: {{Window: time.Minute, Max: 1200}},
			ScopeRead:   {{Window: time.Minute, Max: 1000}},
			ScopeWrite:  {{Window: time.Minute, Max: 60}},
		},
	}
}

// LimitExceeded describes the limit a rejected request hit.
// Scope is empty when the limit came from endpoint configuration.
type LimitExceeded struct {
	Scope  Scope
	Route  string
	Config LimitConfig
	Count  int64
}

// PolicyLimiter enforces a policy over a counter store.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

// NewPolicyLimiter creates a new policy-based rate limiter.
func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{
		store:  store,
		policy: policy,
	}
}

// Allow checks the policy limits of every scope for clientKey.
// The LimitExceeded return value is nil when the request is allowed.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (bool, *LimitExceeded, error) {
	for _, scope := range scopes {
		for _, limit := range l.policy.Limits[scope] {
			count, err := l.store.Incr(ctx, buildKey(clientKey, string(scope), limit), limit.Window)
			if err != nil {
				return false, nil, err
			}

			if count > limit.Max {
				return false, &LimitExceeded{Scope: scope, Config: limit, Count: count}, nil
			}
		}
	}

	return true, nil, nil
}

// AllowRoute checks endpoint limits for clientKey. Counters are shared by every request
// matching the route template, whatever its path parameters.
func (l *PolicyLimiter) AllowRoute(
	ctx context.Context,
	clientKey, route string,
	limits []LimitConfig,
) (bool, *LimitExceeded, error) {
	for _, limit := range limits {
		count, err := l.store.Incr(ctx, buildKey(clientKey, "route:"+route, limit), limit.Window)
		if err != nil {
			return false, nil, err
		}

		if count > limit.Max {
			return false, &LimitExceeded{Route: route, Config: limit, Count: count}, nil
		}
	}

	return true, nil, nil
}

func buildKey(clientKey, bucket string, limit LimitConfig) string {
	return fmt.Sprintf("%s%s:%s:%d", KeyPrefix, clientKey, bucket, limit.Window.Milliseconds())
}
