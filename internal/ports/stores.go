package ports

import "context"

// StateStore is the small local key-value store that survives monitor
// restarts. Get returns domain.ErrKeyNotFound for unknown keys.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
