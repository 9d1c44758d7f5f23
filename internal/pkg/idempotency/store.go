// internal/pkg/idempotency/store.go
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store 基于 Redis SETNX 实现请求去重。
// 同一个 key 在 TTL 内只允许通过一次，用于拦截调用方的网络重试。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Key 生成幂等键。op 区分操作类型，避免 create 与 cancel 互相挡路。
func (s *Store) Key(op, clientKey string) string {
	return fmt.Sprintf("idem:%s:%s", op, clientKey)
}

// Seen 原子地声明 key。返回 true 表示该 key 已被使用过（重复请求）。
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}
