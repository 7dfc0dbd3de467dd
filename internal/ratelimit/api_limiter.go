package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/estatelane/estatelane/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyAPIUser = "api:limit:user:%s"

// APILimiter throttles per-user traffic on the entitlement and access
// endpoints. A missing redis address disables it entirely; every call then
// allows.
type APILimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewAPILimiter(cfg config.Config) *APILimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &APILimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &APILimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    cfg.RateLimitPerSecond,
		burst:   cfg.RateLimitBurst,
	}
}

func (l *APILimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *APILimiter) AllowUser(ctx context.Context, userID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAPIUser, strings.TrimSpace(userID)), l.rate, l.burst)
}
