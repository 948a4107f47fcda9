package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/roulette-settlement-poc/pkg/contracts/events"
)

// RedisCache encapsula o cache do último resultado liquidado por usuário
// Client: cliente Redis
// TTL: tempo de expiração dos registros
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache cria uma instância de cache Redis com TTL configurável
func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

// key gera a chave Redis do último resultado de um usuário
func key(userID string) string { return "round:last:" + userID }

// SetLast armazena o resultado mais recente do usuário com TTL definido
func (r *RedisCache) SetLast(ctx context.Context, e events.RoundSettled) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(e.UserID), b, r.TTL).Err()
}
