// Package store provides sliding window counters for rate limiting.
package store

import (
	"context"
	"time"

	"privacore/internal/ratelimit/models"
)

// BucketStore tracks request counts per key over a sliding window.
type BucketStore interface {
	// Allow records one request against key and reports whether it fits
	// within limit requests per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}
