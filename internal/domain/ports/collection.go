package ports

import "context"

// CollectionManager handles the lifecycle of the concept index collection.
// Kept apart from ConceptIndex so searchers never need admin rights.
type CollectionManager interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	// DeleteCollection removes the collection and all indexed concepts.
	DeleteCollection(ctx context.Context) error
}
