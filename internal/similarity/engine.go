package similarity

import (
	"context"
	"sort"
	"sync"

	"bioterms/internal/annotation"
	"bioterms/internal/logging"
	"bioterms/internal/model"
	"bioterms/internal/store/graph"
)

// flushBufferSize mirrors spec.md §4.8's bounded 10,000-tuple buffer.
const flushBufferSize = 10000

// Engine computes similarity matrices over a vocabulary's ontology DAG and
// streams the results into the graph store. Workers bounds the pair-worker
// pool; zero means the caller accepts DefaultWorkers.
type Engine struct {
	Graph   graph.Store
	Workers int
}

// DefaultWorkers is used when Engine.Workers is unset.
const DefaultWorkers = 4

func (e *Engine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return DefaultWorkers
}

// Calculate runs method over targetPrefix, restricting annotation counting
// to corpusPrefix when set, or to the union of every registered
// annotation pair touching targetPrefix when corpusPrefix is empty (an
// Open Question resolved this way since spec.md marks corpusPrefix
// optional but every count still needs a concrete annotation source - see
// DESIGN.md).
func (e *Engine) Calculate(ctx context.Context, method model.SimilarityMethod, targetPrefix, corpusPrefix model.Prefix, threshold float64) error {
	g, err := e.Graph.GetVocabularyGraph(ctx, targetPrefix)
	if err != nil {
		return err
	}
	annotations, err := e.annotationsFor(ctx, targetPrefix, corpusPrefix)
	if err != nil {
		return err
	}

	d := buildDAG(g)

	switch method {
	case model.MethodRelevance:
		return e.calculateRelevance(ctx, d, g, annotations, targetPrefix, corpusPrefix, threshold)
	case model.MethodCoAnnotationVec:
		return e.calculateCoAnnotation(ctx, d, g, annotations, targetPrefix, corpusPrefix, threshold)
	default:
		return model.NewError(model.ErrValidation, "unknown similarity method: "+string(method), nil)
	}
}

// annotationsFor loads the annotation edges that back annotationCount
// computation: a concrete pair when corpusPrefix is set, or the union of
// every registered pair touching targetPrefix otherwise.
func (e *Engine) annotationsFor(ctx context.Context, targetPrefix, corpusPrefix model.Prefix) ([]model.Annotation, error) {
	if corpusPrefix != "" {
		return e.Graph.GetAnnotationGraph(ctx, targetPrefix, corpusPrefix)
	}

	var all []model.Annotation
	for _, other := range partnerPrefixes(targetPrefix) {
		edges, err := e.Graph.GetAnnotationGraph(ctx, targetPrefix, other)
		if err != nil {
			return nil, err
		}
		all = append(all, edges...)
	}
	return all, nil
}

// partnerPrefixes lists every prefix registered alongside target in
// internal/annotation's compile-time Registry, reading Loader.Metadata()
// off a zero-valued Deps since Metadata() never touches store adapters.
func partnerPrefixes(target model.Prefix) []model.Prefix {
	seen := map[model.Prefix]struct{}{}
	for _, ctor := range annotation.Registry {
		meta := ctor(annotation.Deps{}).Metadata()
		switch target {
		case meta.PrefixA:
			seen[meta.PrefixB] = struct{}{}
		case meta.PrefixB:
			seen[meta.PrefixA] = struct{}{}
		}
	}
	out := make([]model.Prefix, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// pairResult is one scored tuple awaiting flush.
type pairResult struct {
	idA, idB string
	score    float64
}

// flusher buffers up to flushBufferSize pairResults and flushes them via
// SaveSimilarityScores, matching spec.md §4.8's bounded-buffer discipline.
type flusher struct {
	ctx          context.Context
	store        graph.Store
	prefix       model.Prefix
	method       model.SimilarityMethod
	corpusPrefix model.Prefix

	mu  sync.Mutex
	buf []model.SimilarityEdge
}

func newFlusher(ctx context.Context, store graph.Store, prefix model.Prefix, method model.SimilarityMethod, corpusPrefix model.Prefix) *flusher {
	return &flusher{ctx: ctx, store: store, prefix: prefix, method: method, corpusPrefix: corpusPrefix, buf: make([]model.SimilarityEdge, 0, flushBufferSize)}
}

// add is safe for concurrent use by the pair-worker pool; it flushes
// internally once the buffer reaches flushBufferSize.
func (f *flusher) add(idA, idB string, score float64) error {
	pa, a, pb, b := model.CanonicalPairKey(f.prefix, idA, f.prefix, idB)
	edge := model.SimilarityEdge{
		PrefixA: pa, ConceptIDA: a, PrefixB: pb, ConceptIDB: b,
		Scores: map[string]float64{model.ScoreKey(f.method, f.corpusPrefix): score},
	}

	f.mu.Lock()
	f.buf = append(f.buf, edge)
	full := len(f.buf) >= flushBufferSize
	f.mu.Unlock()

	if full {
		return f.flush()
	}
	return nil
}

func (f *flusher) flush() error {
	f.mu.Lock()
	batch := f.buf
	f.buf = make([]model.SimilarityEdge, 0, flushBufferSize)
	f.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := f.store.SaveSimilarityScores(f.ctx, f.prefix, f.prefix, batch, f.method, f.corpusPrefix); err != nil {
		return err
	}
	logging.Similarity("flushed %d similarity scores for %s (method=%s corpus=%s)", len(batch), f.prefix, f.method, f.corpusPrefix)
	return nil
}
