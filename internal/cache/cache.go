package cache

import (
	"context"
	"time"
)

// BytesCache — минимальный KV-контракт поверх redis.
// Используется и для сессий чат-релея, и для rate limit окон.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
