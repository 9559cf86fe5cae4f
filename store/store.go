// Package store defines the key-value capability the bridge keeps its state in.
//
// Keys are namespaced ("mapping:", "grant:", "session:", "refresh:") and each
// namespace has its own TTL policy. Backends expire keys on their own, but
// every record the bridge writes also embeds an absolute expiry which readers
// check again, since eviction and the application check can race.
package store

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-auth-bridge/internal/errors"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = apperrors.ErrNotFound

// Key namespaces.
const (
	NamespaceMapping = "mapping"
	NamespaceGrant   = "grant"
	NamespaceSession = "session"
	NamespaceRefresh = "refresh"
)

// Store is a key-value store with per-key expiration.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes value under key. A ttl of zero means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Take atomically reads and removes key. Concurrent callers taking the
	// same key see at most one success.
	Take(ctx context.Context, key string) ([]byte, error)
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Lister is implemented by stores that can enumerate keys. It is used by
// administrative tooling only.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Key joins a namespace and an id.
func Key(namespace, id string) string {
	return namespace + ":" + id
}
