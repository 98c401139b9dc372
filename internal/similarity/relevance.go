package similarity

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"bioterms/internal/model"
	"bioterms/internal/store/graph"
)

// calculateRelevance implements the intrinsic-information-content method:
// IC(n) = -log(annotationCount(n) / maxAnnotationCount), similarity(a,b) =
// (2*IC(MICA) / (IC(a)+IC(b))) * (1 - annotationCount(MICA)/maxAnnotationCount),
// where MICA is the common ancestor of highest IC. Pairs with no common
// ancestor, or where either endpoint carries no annotations, are omitted.
func (e *Engine) calculateRelevance(ctx context.Context, d *dag, g *graph.Graph, annotations []model.Annotation, targetPrefix, corpusPrefix model.Prefix, threshold float64) error {
	direct := directAnnotationCounts(annotations, targetPrefix)
	counts := d.annotationCounts(direct)

	var maxCount int64
	annotated := make([]string, 0, len(counts))
	for id, c := range counts {
		if c > maxCount {
			maxCount = c
		}
		if c > 0 {
			annotated = append(annotated, id)
		}
	}
	if maxCount == 0 || len(annotated) < 2 {
		return nil
	}

	ic := make(map[string]float64, len(annotated))
	for _, id := range annotated {
		ic[id] = -math.Log(float64(counts[id]) / float64(maxCount))
	}

	ancestorSets := make(map[string]map[string]struct{}, len(annotated))
	for _, id := range annotated {
		ancestorSets[id] = d.ancestors(id)
	}

	f := newFlusher(ctx, e.Graph, targetPrefix, model.MethodRelevance, corpusPrefix)
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.workers())

	for i := 0; i < len(annotated); i++ {
		for j := i + 1; j < len(annotated); j++ {
			a, b := annotated[i], annotated[j]
			grp.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				mica, micaIC, ok := mostInformativeCommonAncestor(ancestorSets[a], ancestorSets[b], ic)
				if !ok {
					return nil
				}
				score := 0.0
				if denom := ic[a] + ic[b]; denom > 0 {
					score = (2 * micaIC / denom) * (1 - float64(counts[mica])/float64(maxCount))
				}
				if score < threshold {
					return nil
				}
				return f.add(a, b, score)
			})
		}
	}

	if err := grp.Wait(); err != nil {
		return err
	}
	return f.flush()
}

// mostInformativeCommonAncestor finds, among the intersection of two
// ancestor sets, the node with the highest information content.
func mostInformativeCommonAncestor(ancestorsA, ancestorsB map[string]struct{}, ic map[string]float64) (string, float64, bool) {
	small, large := ancestorsA, ancestorsB
	if len(large) < len(small) {
		small, large = large, small
	}

	best := ""
	bestIC := math.Inf(-1)
	found := false
	for id := range small {
		if _, ok := large[id]; !ok {
			continue
		}
		nodeIC, hasIC := ic[id]
		if !hasIC {
			continue
		}
		if !found || nodeIC > bestIC {
			best, bestIC, found = id, nodeIC, true
		}
	}
	return best, bestIC, found
}
