package domain

import "context"

// KeyValueStore is the persistent string store that backs client sessions and the cart.
// Get reports ok=false for a missing key; Remove of a missing key is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
