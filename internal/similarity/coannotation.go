package similarity

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"bioterms/internal/model"
	"bioterms/internal/store/graph"
)

// calculateCoAnnotation implements the co-annotation vector method: each
// node's annotation set is the union of annotations of itself and every
// descendant in the restricted DAG. For a pair (a, b) with sets A, B
// against a total annotation universe of size N:
//   NPMI = (1 + log(|A∩B|*N / (|A|*|B|)) / log(N / |A∩B|)) / 2
//   Jaccard = |A∩B| / |A∪B|
//   similarity = NPMI * Jaccard
// Nodes with an empty annotation set are pruned before pairing.
func (e *Engine) calculateCoAnnotation(ctx context.Context, d *dag, g *graph.Graph, annotations []model.Annotation, targetPrefix, corpusPrefix model.Prefix, threshold float64) error {
	direct := directAnnotationSets(annotations, targetPrefix)

	universe := map[string]struct{}{}
	for _, set := range direct {
		for k := range set {
			universe[k] = struct{}{}
		}
	}
	n := len(universe)
	if n == 0 {
		return nil
	}

	sets := make(map[string]map[string]struct{}, len(d.nodeIDs))
	ids := make([]string, 0, len(d.nodeIDs))
	for _, id := range d.nodeIDs {
		union := map[string]struct{}{}
		for desc := range d.descendants(id) {
			for k := range direct[desc] {
				union[k] = struct{}{}
			}
		}
		if len(union) == 0 {
			continue
		}
		sets[id] = union
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil
	}

	f := newFlusher(ctx, e.Graph, targetPrefix, model.MethodCoAnnotationVec, corpusPrefix)
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.workers())

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			grp.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				score, ok := coAnnotationScore(sets[a], sets[b], n)
				if !ok || score < threshold {
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

func coAnnotationScore(a, b map[string]struct{}, n int) (float64, bool) {
	intersection := intersectionSize(a, b)
	if intersection == 0 || intersection == n {
		return 0, false
	}
	unionSize := len(a) + len(b) - intersection

	npmi := (1 + math.Log(float64(intersection)*float64(n)/(float64(len(a))*float64(len(b))))/math.Log(float64(n)/float64(intersection))) / 2
	jaccard := float64(intersection) / float64(unionSize)
	return npmi * jaccard, true
}

func intersectionSize(a, b map[string]struct{}) int {
	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}
	count := 0
	for k := range small {
		if _, ok := large[k]; ok {
			count++
		}
	}
	return count
}
