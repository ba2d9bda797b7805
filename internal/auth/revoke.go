package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "dbdash:revoked:"

// Revoker remembers token ids that were logged out before they expired.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevoker stores revoked ids in Redis, each expiring with its token.
type RedisRevoker struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisRevoker creates a RedisRevoker.
func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb, now: time.Now}
}

// Revoke marks jti revoked until the token's own expiry. Tokens already
// expired need no entry.
func (r *RedisRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke: redis set: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked.
func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("revoke: redis exists: %w", err)
	}
	return n > 0, nil
}

// Redis is a live client plus the in-process server backing it, if any.
type Redis struct {
	Client *redis.Client
	mini   *miniredis.Miniredis
}

// OpenRedis connects to addr, or starts an in-process server when addr is
// empty, and checks the connection.
func OpenRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	r := &Redis{}
	if addr == "" {
		mini, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("redis: start in-process server: %w", err)
		}
		r.mini = mini
		addr, password, db = mini.Addr(), "", 0
	}

	r.Client = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := r.Client.Ping(ctx).Err(); err != nil {
		r.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return r, nil
}

// Embedded reports whether the server runs in-process.
func (r *Redis) Embedded() bool {
	return r.mini != nil
}

// Close releases the client and stops an in-process server.
func (r *Redis) Close() {
	if r.Client != nil {
		_ = r.Client.Close()
	}
	if r.mini != nil {
		r.mini.Close()
	}
}
