// Package document defines the document-store adapter contract: per-prefix
// concept collections with secondary indices, auto-complete, and the
// administrative user/API-key repository. Two backends implement Store -
// mongo.go (primary) and sqlite.go (embedded fallback) - and must present
// identical external behavior and auto-complete ordering.
package document

import (
	"context"

	"bioterms/internal/model"
)

// Store is the document-store adapter contract.
type Store interface {
	// CreateIndex ensures a secondary index exists on field for prefix. The
	// nGrams multi-key index is always ensured regardless of which field is
	// requested. overwrite=false on a conflicting existing index returns an
	// IndexCreationError.
	CreateIndex(ctx context.Context, prefix model.Prefix, field string, unique bool, overwrite bool) error

	// SaveTerms computes n-grams and search text per term (offloaded to a
	// worker pool) then bulk-writes, sharded by prefix. Both backends upsert
	// on (prefix, conceptId), so a duplicate within a prefix replaces the
	// earlier record rather than failing. A record whose write fails does
	// not stop the rest of the batch.
	SaveTerms(ctx context.Context, terms []*model.Concept) error

	CountTerms(ctx context.Context, prefix model.Prefix) (int64, error)

	// DeleteAllForLabel drops and recreates the prefix shard.
	DeleteAllForLabel(ctx context.Context, prefix model.Prefix) error

	GetTermsIter(ctx context.Context, prefix model.Prefix, limit int) (ConceptIterator, error)
	GetTermsByIDsIter(ctx context.Context, prefix model.Prefix, ids []string) (ConceptIterator, error)

	// AutoCompleteIter implements the n-gram superset + positional ranking
	// query described in the auto-complete engine contract.
	AutoCompleteIter(ctx context.Context, prefix model.Prefix, query string, limit int) (ConceptIterator, error)

	// UpdateVectorMapping bulk-upserts the vectorId field.
	UpdateVectorMapping(ctx context.Context, prefix model.Prefix, mapping map[string]string) error

	Users() UserRepository

	Close() error
}

// ConceptIterator streams Concept records with cancellation support,
// replacing the coroutine-generator pattern of the original loaders.
type ConceptIterator interface {
	// Next advances the iterator. Returns (nil, false, nil) at end of
	// stream, (nil, false, err) on error.
	Next(ctx context.Context) (*model.Concept, bool, error)
	Close() error
}

// User is the minimum administrative record the API-key subsystem
// consumes; the credential store proper is out of scope.
type User struct {
	ID      string
	Email   string
	APIKeys []APIKey
}

// APIKey is a hashed credential sub-document on User.
type APIKey struct {
	Label    string
	HashHex  string
	Revoked  bool
}

// UserRepository is the administrative-side CRUD surface on the document
// store.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	FindByAPIKeyHash(ctx context.Context, hashHex string) (*User, error)
}
