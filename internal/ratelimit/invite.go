package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/assesshub/backoffice/internal/config"
)

const (
	keyInviteToken = "invite:token:%s"
	keyBootstrap   = "bootstrap:seed"

	inviteTokenRate  = 1.0
	inviteTokenBurst = 10
)

// InviteLimiter throttles the unauthenticated invitation-token endpoints per
// client address. When redis is not configured the limiter is a no-op so
// single-node deployments keep working.
type InviteLimiter struct {
	enabled bool
	bucket  *TokenBucket
	locker  *Locker
}

func NewInviteLimiter(cfg config.Config) *InviteLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &InviteLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &InviteLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
	}
}

func (l *InviteLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *InviteLimiter) AllowTokenLookup(ctx context.Context, clientAddr string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	key := fmt.Sprintf(keyInviteToken, strings.TrimSpace(clientAddr))
	return l.bucket.Allow(ctx, key, inviteTokenRate, inviteTokenBurst)
}

// TryBootstrapLock guards the one-time admin bootstrap across replicas.
func (l *InviteLimiter) TryBootstrapLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, keyBootstrap, ttl)
}

func (l *InviteLimiter) ReleaseBootstrapLock(ctx context.Context, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, keyBootstrap, token)
}
