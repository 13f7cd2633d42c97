package ports

import (
	"context"
	"time"
)

// Limiter counts issuances per caller in fixed windows
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
