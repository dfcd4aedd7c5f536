/*
store.go - Persistence and data-source interfaces for the state engine

PURPOSE:
  Defines the boundary between in-memory stores and the outside world.
  A Persister holds best-effort snapshots (one key per store) so that a
  restarted process can restore what the user was looking at. A Source is
  the remote data source that owns the authoritative collections.

KEY INTERFACES:
  Persister: key-value durable snapshot storage
  Source:    list + create for one entity type

SNAPSHOT CONTRACT:
  - Load() is called once, at hydration
  - Save() is called after every persisted mutation
  - Values are JSON documents; transient fields (loading, error) are never written
  - Concurrent writers from different processes are not coordinated (last writer wins)

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite key-value table
  - generic/store/memory.go: In-memory for testing
  - remote/mock.go, remote/client.go: Source implementations

SEE ALSO:
  - entity_store.go: Uses both interfaces
*/
package generic

import "context"

// Storage keys, one per store.
const (
	KeyAuth          = "auth-storage"
	KeyCourses       = "courses-storage"
	KeyLearners      = "learners-storage"
	KeyOrganizations = "organizations-storage"
	KeyProgress      = "progress-storage"
	KeyCertificates  = "certificates-storage"
	KeyUI            = "ui-storage"

	// Session side channel written by the auth store outside its snapshot.
	KeySessionToken = "auth-token"
	KeySessionUser  = "user"
)

// =============================================================================
// PERSISTER - Key-value snapshot storage
// =============================================================================

// Persister stores serialized snapshots under string keys.
type Persister interface {
	// Load returns the value stored under key, or ErrSnapshotNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the value stored under key.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)
}

// =============================================================================
// SOURCE - Remote data source for one entity type
// =============================================================================

// Source is the remote collaborator behind an EntityStore.
// D is the creation payload: the entity without id and timestamps.
type Source[T any, D any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, draft D) (T, error)
}
