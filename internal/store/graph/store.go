// Package graph defines the graph-store adapter contract: typed directed
// edges between (prefix, conceptId) nodes, bulk upsert, bounded descendant
// expansion, and similarity/translation queries. sqlite.go is the embedded
// fallback (grounded on the teacher's local_graph.go BFS traversal);
// neo4j.go is the primary backend.
package graph

import (
	"context"

	"bioterms/internal/model"
)

// Graph is an in-memory snapshot of a vocabulary's internal relationships,
// passed by reference into similarity-engine worker goroutines - Go
// goroutines share memory natively, so no process-pool copy-on-write
// trick is needed here.
type Graph struct {
	Nodes map[string]*model.Concept                      // key: conceptId
	Edges map[string][]model.InternalRelationship        // key: FromID
}

// Store is the graph-store adapter contract.
type Store interface {
	SaveVocabularyGraph(ctx context.Context, concepts []*model.Concept, rels []model.InternalRelationship) error
	GetVocabularyGraph(ctx context.Context, prefix model.Prefix) (*Graph, error)
	DeleteVocabularyGraph(ctx context.Context, prefix model.Prefix) error

	CountTerms(ctx context.Context, prefix model.Prefix) (int64, error)
	CountInternalRelationships(ctx context.Context, prefix model.Prefix) (int64, error)

	SaveAnnotations(ctx context.Context, annotations []model.Annotation) error
	GetAnnotationGraph(ctx context.Context, p1, p2 model.Prefix) ([]model.Annotation, error)
	DeleteAnnotations(ctx context.Context, p1, p2 model.Prefix) error
	CountAnnotations(ctx context.Context, p1, p2 model.Prefix) (int64, error)

	// SaveSimilarityScores writes/merges a similar_to edge per pair for
	// prefixFrom x prefixTo, batching writes (batch size 1000 internally).
	SaveSimilarityScores(ctx context.Context, prefixFrom, prefixTo model.Prefix, scores []model.SimilarityEdge, method model.SimilarityMethod, corpusPrefix model.Prefix) error
	CountSimilarityRelationships(ctx context.Context, prefixFrom, prefixTo model.Prefix) (int64, error)

	// ExpandTermsIter returns descendants following IS_A backwards (child
	// to parent edges traversed in reverse), BFS with global node
	// uniqueness per root, truncated to limit per root. maxDepth<=0 means
	// unbounded (the full transitive descendant set).
	ExpandTermsIter(ctx context.Context, prefix model.Prefix, conceptIDs []string, maxDepth int, limit int) (ExpansionIterator, error)

	GetSimilarTermsIter(ctx context.Context, opts SimilarTermsQuery) (SimilarIterator, error)
	TranslateTermsIter(ctx context.Context, opts TranslateQuery) (TranslateIterator, error)

	Close() error
}

// SimilarTermsQuery bundles the getSimilarTermsIter parameters.
type SimilarTermsQuery struct {
	Prefix       model.Prefix
	ConceptIDs   []string
	Threshold    float64
	SamePrefix   bool
	CorpusPrefix model.Prefix // optional
	Method       model.SimilarityMethod
	Limit        int
}

// TranslateQuery bundles the translateTermsIter parameters.
type TranslateQuery struct {
	OriginalIDs     []string
	OriginalPrefix  model.Prefix
	ConstraintIDs   map[model.Prefix]map[string]struct{}
	Threshold       float64
	Limit           int
}

// ExpansionIterator streams ExpansionResult records.
type ExpansionIterator interface {
	Next(ctx context.Context) (*model.ExpansionResult, bool, error)
	Close() error
}

// SimilarIterator streams SimilarTermResult records.
type SimilarIterator interface {
	Next(ctx context.Context) (*model.SimilarTermResult, bool, error)
	Close() error
}

// TranslateIterator streams TranslatedTerm records.
type TranslateIterator interface {
	Next(ctx context.Context) (*model.TranslatedTerm, bool, error)
	Close() error
}
