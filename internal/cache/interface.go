package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get unmarshals the cached value into value, reporting whether the key
	// was present.
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
