package domain

import (
	"context"
	"time"
)

// TokenRepository stores short-lived opaque tokens with absolute expiry.
// Reading a token never extends its lifetime.
type TokenRepository interface {
	// Put stores value under key for ttl.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value stored under key.
	// Returns ("", false, nil) when the key is missing or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Take removes key and returns its value and remaining lifetime in one
	// atomic step. Returns ("", 0, false, nil) when the key is missing or expired.
	Take(ctx context.Context, key string) (string, time.Duration, bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
