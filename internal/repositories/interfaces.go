package repositories

import (
	"context"

	"github.com/courseworks/registration-service/internal/models"
)

// Entity is the minimal contract a stored document type satisfies.
type Entity interface {
	GetID() string
	SetID(id string)
}

// RecordStore is a generic persistence gateway over one named collection.
// It carries no business rules and never mutates more than the documents
// explicitly passed to it.
type RecordStore[T Entity] interface {
	// Create persists new documents and returns the generated ids in input
	// order.
	Create(ctx context.Context, entities []T) ([]string, error)

	// FetchByID returns the documents matching the given ids, omitting ids
	// with no match. A nil or empty selector returns every document of the
	// collection.
	FetchByID(ctx context.Context, ids []string) ([]T, error)

	// FetchByFilter returns documents matching a store-native filter. The
	// filter grammar is owned by the store adapter; callers treat it as an
	// opaque value.
	FetchByFilter(ctx context.Context, filter string) ([]T, error)

	// Update replaces whole documents by id. Returns ErrNotFound when an id
	// no longer exists.
	Update(ctx context.Context, entities []T) error

	// Remove deletes by id. Missing ids are silently ignored.
	Remove(ctx context.Context, ids []string) error
}

// Repository bundles the per-collection stores behind one dependency.
type Repository interface {
	Users() RecordStore[*models.User]
	Students() RecordStore[*models.Student]
	Courses() RecordStore[*models.Course]
}
