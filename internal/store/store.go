// internal/store/store.go
//
// Storage contract for customer sites.
//
// Context
// -------
// Every backend (embedded SQL, managed document API, direct document
// driver, embedded KV, in-memory) implements the same small capability set.
// Exactly one adapter is active per process; `internal/backend` picks it
// from configuration so handlers never branch on backend identity.
//
// Notes
// -----
//   - Adapters return ErrNotFound / ErrConflict so callers can map them with
//     errors.Is; any other error is a storage failure.
//   - EnsureSchema is idempotent and a no-op for schemaless backends.
package store

import (
	"context"
	"errors"

	"github.com/yanizio/libretv-sites/internal/site"
)

var (
	ErrNotFound = errors.New("site not found")
	ErrConflict = errors.New("site id already exists")
)

// Defaults shared by the document and relational adapters.
const (
	DefaultCluster    = "Cluster0"
	DefaultDatabase   = "libretv"
	DefaultCollection = "customer_sites"
)

// Store is the storage adapter contract.
type Store interface {
	FindOne(ctx context.Context, id string) (*site.Record, error)
	FindAll(ctx context.Context) ([]site.Record, error)
	Insert(ctx context.Context, rec site.Record) error
	UpdateFields(ctx context.Context, id string, f site.Fields) error
	Delete(ctx context.Context, id string) error
	EnsureSchema(ctx context.Context) error
	Close() error
}
