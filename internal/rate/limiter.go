package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config tunes a Limiter.
type Config struct {
	// Prefix namespaces the counter keys. Defaults to "authstate:rl".
	Prefix      string
	MaxAttempts int
	Window      time.Duration
	// PerIP also counts failures per client address.
	PerIP bool
}

// Limiter throttles failed logins per account and optionally per address.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a Limiter. Zero MaxAttempts or Window fall back to 5 attempts
// per 15 minutes.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "authstate:rl"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &Limiter{redis: client, config: cfg}
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.config.Window
}

// Check returns ErrRateLimited when email or ip already used up the budget.
func (l *Limiter) Check(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// RecordFailure counts one failed attempt.
func (l *Limiter) RecordFailure(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count == 1 {
			if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the account counter after a successful login. The address
// counter keeps running.
func (l *Limiter) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, l.emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{l.emailKey(email)}
	if l.config.PerIP && ip != "" {
		keys = append(keys, l.config.Prefix+":ip:"+ip)
	}
	return keys
}

func (l *Limiter) emailKey(email string) string {
	return l.config.Prefix + ":login:" + strings.ToLower(strings.TrimSpace(email))
}
