package ratelimiter

import (
	"context"
	"fmt"
	"strings"

	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/redis/go-redis/v9"
)

// checkAndIncrScript evaluates every window key first and only issues the
// INCR+EXPIRE calls if all are within limit, all inside one EVAL — Redis
// executes a script as a single atomic command, so no other client can
// observe or act on an intermediate state.
const checkAndIncrScript = `
for i = 1, #KEYS do
	local limit = tonumber(ARGV[i])
	local current = tonumber(redis.call("GET", KEYS[i]) or "0")
	if current >= limit then
		return 0
	end
end
for i = 1, #KEYS do
	local ttl = tonumber(ARGV[#KEYS + i])
	local new = redis.call("INCR", KEYS[i])
	if new == 1 then
		redis.call("PEXPIRE", KEYS[i], ttl)
	end
end
return 1
`

// Redis is the production rate-limit Store, backed by a single Lua script
// evaluation per request.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	script    *redis.Script
}

// NewRedis creates a Redis-backed rate limit Store.
func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &Redis{client: client, keyPrefix: keyPrefix, script: redis.NewScript(checkAndIncrScript)}
}

func (r *Redis) CheckAndIncrement(ctx context.Context, tenant domain.TenantID, windows []WindowSpec) (bool, error) {
	keys := make([]string, len(windows))
	args := make([]any, 0, len(windows)*2)
	for i, w := range windows {
		keys[i] = r.key(tenant, w.Window)
		args = append(args, w.Limit)
	}
	for _, w := range windows {
		args = append(args, w.TTL.Milliseconds())
	}

	res, err := r.script.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimiter: redis: %w", err)
	}
	return res == 1, nil
}

func (r *Redis) key(tenant domain.TenantID, window domain.RateLimitWindow) string {
	return strings.Join([]string{r.keyPrefix, string(tenant), string(window)}, ":")
}
