package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig contains configuration for rate limiting
type RateLimitConfig struct {
	MessageLimit  int           // Max messages per window
	MessageWindow time.Duration // Message rate limit window
	UploadLimit   int           // Max uploads per window
	UploadWindow  time.Duration // Upload rate limit window
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MessageLimit:  60,
		MessageWindow: 60 * time.Second,
		UploadLimit:   20,
		UploadWindow:  60 * time.Second,
	}
}

// RateLimiter handles fixed-window rate limiting using Redis
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

// AllowMessage checks if a user can send a message
func (r *RateLimiter) AllowMessage(ctx context.Context, userID string) (RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:messages", userID)
	return r.allow(ctx, key, r.config.MessageLimit, r.config.MessageWindow)
}

// AllowUpload checks if a user can upload a file
func (r *RateLimiter) AllowUpload(ctx context.Context, userID string) (RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:uploads", userID)
	return r.allow(ctx, key, r.config.UploadLimit, r.config.UploadWindow)
}

func (r *RateLimiter) allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, err
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   count <= limit,
		Remaining: remaining,
		ResetIn:   ttl.Val(),
		Limit:     limit,
	}, nil
}
