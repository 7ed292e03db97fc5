package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLeasePrefix = "adsync:lease:"

// releaseScript deletes the lease only while it still carries the holder's token, so an
// expired lease re-acquired by another replica is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLeaseRepo hands out named, TTL-bound leases shared by every replica.
type RedisLeaseRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLeaseRepo creates a RedisLeaseRepo. An empty prefix uses "adsync:lease:".
func NewRedisLeaseRepo(client redis.UniversalClient, prefix string) *RedisLeaseRepo {
	if prefix == "" {
		prefix = defaultLeasePrefix
	}
	return &RedisLeaseRepo{client: client, prefix: prefix}
}

// TryAcquire sets the lease with SET NX PX. acquired is false without error when another
// holder owns it. The TTL is raised to one second when smaller.
func (r *RedisLeaseRepo) TryAcquire(
	ctx context.Context,
	name string,
	ttl time.Duration,
) (func(context.Context) error, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, ErrLeaseNameRequired
	}
	ttl = max(ttl, time.Second)

	key := r.prefix + name
	token := uuid.NewString()

	err := r.client.SetArgs(ctx, key, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis SET NX %s: %w", key, err)
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lease %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}

// Ping checks Redis connectivity for readiness probes.
func (r *RedisLeaseRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
