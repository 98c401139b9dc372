// Package query wraps the document and graph store adapters into the
// auto-complete, expansion, similarity, and translation operations a
// transport layer would expose, following the REDESIGN FLAGS guidance to
// replace coroutine generators with an iterator interface plus
// cancellation (spec.md §9).
package query

import (
	"context"
	"fmt"
	"strings"

	"bioterms/internal/logging"
	"bioterms/internal/model"
	"bioterms/internal/store/document"
	"bioterms/internal/store/graph"
)

// DefaultMinQueryLength mirrors config.Config's default AutoCompleteMinLength.
const DefaultMinQueryLength = 3

// Engine is the query surface over a fully-ingested vocabulary set. It
// holds no state of its own; every operation reads straight through to
// the document or graph store.
type Engine struct {
	Document       document.Store
	Graph          graph.Store
	MinQueryLength int
}

func (e *Engine) minQueryLength() int {
	if e.MinQueryLength > 0 {
		return e.MinQueryLength
	}
	return DefaultMinQueryLength
}

// AutoCompleteV1Result is the legacy string-list shape: it never signals a
// too-short query as an error, only as an advisory string.
type AutoCompleteV1Result struct {
	Terms    []string `json:"terms,omitempty"`
	Advisory string   `json:"advisory,omitempty"`
}

// AutoCompleteV1 never returns an error for a too-short query (spec.md
// §6's "never returns HTTP 400" contract); it returns an advisory message
// instead.
func (e *Engine) AutoCompleteV1(ctx context.Context, prefix model.Prefix, query string, limit int) (AutoCompleteV1Result, error) {
	if len(strings.TrimSpace(query)) < e.minQueryLength() {
		return AutoCompleteV1Result{Advisory: fmt.Sprintf("query must be at least %d characters", e.minQueryLength())}, nil
	}

	iter, err := e.Document.AutoCompleteIter(ctx, prefix, query, limit)
	if err != nil {
		return AutoCompleteV1Result{}, err
	}
	defer iter.Close()

	terms := make([]string, 0, limit)
	for {
		c, ok, err := iter.Next(ctx)
		if err != nil {
			return AutoCompleteV1Result{}, err
		}
		if !ok {
			break
		}
		terms = append(terms, c.Label)
	}
	logging.Query("autocomplete v1 prefix=%s query=%q -> %d terms", prefix, query, len(terms))
	return AutoCompleteV1Result{Terms: terms}, nil
}

// AutoCompleteV2Term is the structured auto-complete record.
type AutoCompleteV2Term struct {
	TermID     string `json:"termId"`
	Label      string `json:"label"`
	Definition string `json:"definition,omitempty"`
}

// AutoCompleteV2 validates the minimum query length and surfaces a
// ValidationError on failure, unlike v1.
func (e *Engine) AutoCompleteV2(ctx context.Context, prefix model.Prefix, query string, limit int) ([]AutoCompleteV2Term, error) {
	if err := e.validateQueryLength(query); err != nil {
		return nil, err
	}

	iter, err := e.Document.AutoCompleteIter(ctx, prefix, query, limit)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	results := make([]AutoCompleteV2Term, 0, limit)
	for {
		c, ok, err := iter.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		results = append(results, AutoCompleteV2Term{TermID: c.ConceptID, Label: c.Label, Definition: c.Definition})
	}
	return results, nil
}

// AutoCompleteV3 streams the full Concept records (already stripped of
// NGrams/SearchText by the document store backends) matching the query.
func (e *Engine) AutoCompleteV3(ctx context.Context, prefix model.Prefix, query string, limit int) (document.ConceptIterator, error) {
	if err := e.validateQueryLength(query); err != nil {
		return nil, err
	}
	return e.Document.AutoCompleteIter(ctx, prefix, query, limit)
}

func (e *Engine) validateQueryLength(query string) error {
	if len(strings.TrimSpace(query)) < e.minQueryLength() {
		return model.NewError(model.ErrValidation, fmt.Sprintf("query must be at least %d characters", e.minQueryLength()), nil)
	}
	return nil
}

// ExpandV1Result is the legacy expansion record: one per requested term,
// carrying the descendant set under the field name "children" and echoing
// back the requested depth.
type ExpandV1Result struct {
	TermID   string   `json:"termId"`
	Children []string `json:"children"`
	Depth    int      `json:"depth"`
}

// ExpandV1 returns the transitive descendant set (following IS_A
// backwards) for each term, bounded to depth when depth > 0.
func (e *Engine) ExpandV1(ctx context.Context, prefix model.Prefix, termIDs []string, depth int) ([]ExpandV1Result, error) {
	iter, err := e.Graph.ExpandTermsIter(ctx, prefix, termIDs, depth, 0)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	results := make([]ExpandV1Result, 0, len(termIDs))
	for {
		r, ok, err := iter.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		results = append(results, ExpandV1Result{TermID: r.ConceptID, Children: r.Descendants, Depth: depth})
	}
	return results, nil
}

// ExpandV2 streams ExpansionResult records directly from the graph store.
func (e *Engine) ExpandV2(ctx context.Context, prefix model.Prefix, termIDs []string, maxDepth, limit int) (graph.ExpansionIterator, error) {
	return e.Graph.ExpandTermsIter(ctx, prefix, termIDs, maxDepth, limit)
}

// SimilarV1Result mixes two distinct "threshold" fields per spec.md §9's
// Open Question: similarityThreshold is the score cutoff applied, and
// threshold (when set) is the result-count cap.
type SimilarV1Result struct {
	TermID              string   `json:"termId"`
	SimilarIDs          []string `json:"similarIds"`
	SimilarityThreshold float64  `json:"similarityThreshold"`
	Threshold           int      `json:"threshold,omitempty"`
}

// SimilarV1 flattens every matched group's neighbors into one
// "prefix:conceptId"-qualified list per source term.
func (e *Engine) SimilarV1(ctx context.Context, prefix model.Prefix, termIDs []string, threshold float64, limit int) ([]SimilarV1Result, error) {
	results := make([]SimilarV1Result, 0, len(termIDs))
	for _, id := range termIDs {
		iter, err := e.Graph.GetSimilarTermsIter(ctx, graph.SimilarTermsQuery{
			Prefix:     prefix,
			ConceptIDs: []string{id},
			Threshold:  threshold,
			Limit:      limit,
		})
		if err != nil {
			return nil, err
		}
		res, err := drainSimilarForTerm(ctx, iter, id, threshold, limit)
		iter.Close()
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func drainSimilarForTerm(ctx context.Context, iter graph.SimilarIterator, termID string, threshold float64, limit int) (SimilarV1Result, error) {
	out := SimilarV1Result{TermID: termID, SimilarityThreshold: threshold, Threshold: limit}
	for {
		r, ok, err := iter.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		for _, group := range r.Groups {
			for _, sc := range group.Similar {
				out.SimilarIDs = append(out.SimilarIDs, string(group.Prefix)+":"+sc.ConceptID)
			}
		}
	}
	return out, nil
}

// SimilarV2 passes a SimilarTermsQuery straight through, streaming
// SimilarTermResult records grouped by target prefix.
func (e *Engine) SimilarV2(ctx context.Context, opts graph.SimilarTermsQuery) (graph.SimilarIterator, error) {
	return e.Graph.GetSimilarTermsIter(ctx, opts)
}

// TranslateV1Result is the legacy translation record: the best-scoring
// constrained target per original term.
type TranslateV1Result struct {
	TermID string  `json:"termId"`
	Score  float64 `json:"score"`
}

// TranslateV1 returns the best-scoring constrained target per original
// concept that has a match, in the order TranslateTermsIter emits them
// (one per original id that cleared threshold and the constraint set).
func (e *Engine) TranslateV1(ctx context.Context, originalIDs []string, originalPrefix model.Prefix, constraintIDs map[model.Prefix][]string, threshold float64) ([]TranslateV1Result, error) {
	sets := make(map[model.Prefix]map[string]struct{}, len(constraintIDs))
	for p, ids := range constraintIDs {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		sets[p] = set
	}

	iter, err := e.Graph.TranslateTermsIter(ctx, graph.TranslateQuery{
		OriginalIDs:    originalIDs,
		OriginalPrefix: originalPrefix,
		ConstraintIDs:  sets,
		Threshold:      threshold,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	results := make([]TranslateV1Result, 0, len(originalIDs))
	for {
		t, ok, err := iter.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		results = append(results, TranslateV1Result{TermID: t.ConceptID, Score: t.Score})
	}
	return results, nil
}

// TranslateV2 passes a TranslateQuery straight through, streaming
// TranslatedTerm records.
func (e *Engine) TranslateV2(ctx context.Context, opts graph.TranslateQuery) (graph.TranslateIterator, error) {
	return e.Graph.TranslateTermsIter(ctx, opts)
}

// ParseConstraintRef parses a "prefix:conceptId"-form reference, the shape
// Translate v2's GET constraints use.
func ParseConstraintRef(ref string) (model.Prefix, string, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", model.NewError(model.ErrValidation, "constraint ref must be prefix:conceptId, got "+ref, nil)
	}
	return model.Prefix(parts[0]), parts[1], nil
}
