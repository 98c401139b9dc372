// Package vector defines the vector-store adapter contract: per-prefix
// collections of (conceptId, embedding) pairs, batched insertion, paged
// iteration, and top-K cosine search. sqlitevec.go is the embedded
// fallback (grounded on the teacher's vector_store.go/vec_compat.go
// sqlite-vec integration); qdrant.go is the primary backend.
package vector

import (
	"context"
	"strings"

	"bioterms/internal/model"
)

// DefaultEmbedBatchSize mirrors the teacher's StoreVectorBatchWithEmbedding
// batching and the original Python embed_concepts default of 32.
const DefaultEmbedBatchSize = 32

// ScrollPageSize mirrors the original Qdrant scroll pagination limit.
const ScrollPageSize = 100

// Record pairs a concept with its embedding vector and assigned vector ID.
type Record struct {
	ConceptID string
	VectorID  string
	Vector    []float32
}

// Match is a single top-K search result.
type Match struct {
	ConceptID string
	Score     float64
}

// Iterator streams Records for a prefix, one page at a time internally.
type Iterator interface {
	Next(ctx context.Context) (*Record, bool, error)
	Close() error
}

// Store is the vector-store adapter contract.
type Store interface {
	// InsertConcepts stores records, all belonging to the same prefix,
	// whose vectors the caller has already computed. It returns only an
	// error, not a conceptId -> vectorId mapping; the Qdrant backend
	// assigns a UUID in place to any record with an empty VectorID.
	InsertConcepts(ctx context.Context, prefix model.Prefix, records []Record) error

	GetVectorsForPrefixIter(ctx context.Context, prefix model.Prefix) (Iterator, error)
	DeleteVectorsForPrefix(ctx context.Context, prefix model.Prefix) error

	// SearchSimilar returns the topK nearest neighbours to query within prefix.
	SearchSimilar(ctx context.Context, prefix model.Prefix, query []float32, topK int) ([]Match, error)

	Close() error
}

func collectionName(prefix model.Prefix) string {
	return strings.ToLower(string(prefix))
}
