package ports

import "context"

// Store defines the narrow capability surface the engine needs from a
// persistence backend. Save/load/checkpoint persistence is written against
// this interface; the engine is agnostic to the backend (memory, file,
// database-style). Values are opaque bytes — serialization happens above
// this boundary.
type Store interface {
	// Get retrieves the value for a key.
	// Returns domain.ErrStateNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set persists the value under the key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys currently held by the backend.
	List(ctx context.Context) ([]string, error)

	// Clear removes every key.
	Clear(ctx context.Context) error
}
