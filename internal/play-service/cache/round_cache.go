package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoundCache guarda a visão de consulta das rodadas liquidadas no Redis
// Client: cliente Redis
// TTL: tempo de expiração dos registros
type RoundCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRoundCache(c *redis.Client, ttl time.Duration) *RoundCache {
	return &RoundCache{Client: c, TTL: ttl}
}

// key gera a chave Redis do status de uma rodada
func key(userID string, epoch uint64) string {
	return fmt.Sprintf("round:%s:%d", userID, epoch)
}

// Get busca o status no cache; ok=false em miss
func (r *RoundCache) Get(ctx context.Context, userID string, epoch uint64, dst any) (bool, error) {
	b, err := r.Client.Get(ctx, key(userID, epoch)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

// Set grava o status com TTL definido
func (r *RoundCache) Set(ctx context.Context, userID string, epoch uint64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(userID, epoch), b, r.TTL).Err()
}

// Invalidate remove o status (após claim muda a fase)
func (r *RoundCache) Invalidate(ctx context.Context, userID string, epoch uint64) error {
	return r.Client.Del(ctx, key(userID, epoch)).Err()
}
