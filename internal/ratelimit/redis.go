package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// incrScript увеличивает счётчик и выставляет время жизни, если его нет.
// Ключ без TTL (например, после сбоя между командами) получает его заново.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisFixedWindow считает запросы в Redis, поэтому лимит общий для всех
// экземпляров сервиса.
type RedisFixedWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisFixedWindow создаёт лимитер на limit запросов за window поверх client.
func NewRedisFixedWindow(client *redis.Client, limit int, window time.Duration) *RedisFixedWindow {
	return &RedisFixedWindow{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow атомарно увеличивает счётчик ключа. Первый запрос в окне выставляет
// время жизни счётчика, по его истечении окно начинается заново.
func (l *RedisFixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	const op = "ratelimit.RedisFixedWindow.Allow"

	n, err := incrScript.Run(ctx, l.client, []string{keyPrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n <= int64(l.limit), nil
}
