package contracts

import "context"

// ⭐ SSOT: the repository interface is defined here only

// Entity is anything stored in a Repository
type Entity interface {
	Key() string
}

// Predicate filters entities; nil matches everything
type Predicate[T Entity] func(T) bool

// Repository is the storage contract shared by every backend.
// Add is an upsert by Key.
type Repository[T Entity] interface {
	GetAll(ctx context.Context, pred Predicate[T]) ([]T, error)
	// GetByID returns ErrNotFound when missing
	GetByID(ctx context.Context, id string) (T, error)
	Add(ctx context.Context, entity T) error
	AddRange(ctx context.Context, entities []T) error
	Remove(ctx context.Context, id string) error
	Truncate(ctx context.Context) error
}
