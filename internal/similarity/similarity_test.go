package similarity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bioterms/internal/model"
	"bioterms/internal/store/graph"
)

// TestMain verifies the errgroup-based pair-worker pools in relevance.go
// and coannotation.go never leave a goroutine running past the test that
// spawned it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// A small HPO-shaped DAG:
//
//	root (HP:1)
//	 |-- branch (HP:2)
//	       |-- leafA (HP:3), annotated with gene G1, G2
//	       |-- leafB (HP:4), annotated with gene G2, G3
func buildFixtureGraph(t *testing.T) (*graph.SQLiteStore, []model.Annotation) {
	t.Helper()
	store, err := graph.NewSQLiteStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	concepts := []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "HP:1", Label: "root", Status: model.StatusActive},
		{Prefix: model.PrefixHPO, ConceptID: "HP:2", Label: "branch", Status: model.StatusActive},
		{Prefix: model.PrefixHPO, ConceptID: "HP:3", Label: "leafA", Status: model.StatusActive},
		{Prefix: model.PrefixHPO, ConceptID: "HP:4", Label: "leafB", Status: model.StatusActive},
	}
	rels := []model.InternalRelationship{
		{Prefix: model.PrefixHPO, FromID: "HP:2", ToID: "HP:1", Label: model.RelationIsA},
		{Prefix: model.PrefixHPO, FromID: "HP:3", ToID: "HP:2", Label: model.RelationIsA},
		{Prefix: model.PrefixHPO, FromID: "HP:4", ToID: "HP:2", Label: model.RelationIsA},
	}
	ctx := context.Background()
	require.NoError(t, store.SaveVocabularyGraph(ctx, concepts, rels))

	annotations := []model.Annotation{
		{PrefixFrom: model.PrefixHGNCSymbol, ConceptIDFrom: "G1", PrefixTo: model.PrefixHPO, ConceptIDTo: "HP:3"},
		{PrefixFrom: model.PrefixHGNCSymbol, ConceptIDFrom: "G2", PrefixTo: model.PrefixHPO, ConceptIDTo: "HP:3"},
		{PrefixFrom: model.PrefixHGNCSymbol, ConceptIDFrom: "G2", PrefixTo: model.PrefixHPO, ConceptIDTo: "HP:4"},
		{PrefixFrom: model.PrefixHGNCSymbol, ConceptIDFrom: "G3", PrefixTo: model.PrefixHPO, ConceptIDTo: "HP:4"},
	}
	require.NoError(t, store.SaveAnnotations(ctx, annotations))

	return store, annotations
}

func TestAnnotationCountsSumChildrenUpward(t *testing.T) {
	store, annotations := buildFixtureGraph(t)
	ctx := context.Background()

	g, err := store.GetVocabularyGraph(ctx, model.PrefixHPO)
	require.NoError(t, err)

	d := buildDAG(g)
	direct := directAnnotationCounts(annotations, model.PrefixHPO)
	counts := d.annotationCounts(direct)

	assert.Equal(t, int64(2), counts["HP:3"])
	assert.Equal(t, int64(2), counts["HP:4"])
	assert.Equal(t, int64(4), counts["HP:2"])
	assert.Equal(t, int64(4), counts["HP:1"])
}

func TestAncestorsIncludesSelfAndTransitiveParents(t *testing.T) {
	store, _ := buildFixtureGraph(t)
	ctx := context.Background()
	g, err := store.GetVocabularyGraph(ctx, model.PrefixHPO)
	require.NoError(t, err)

	d := buildDAG(g)
	anc := d.ancestors("HP:3")
	assert.Contains(t, anc, "HP:3")
	assert.Contains(t, anc, "HP:2")
	assert.Contains(t, anc, "HP:1")
}

func TestMostInformativeCommonAncestorPicksHighestIC(t *testing.T) {
	ic := map[string]float64{"HP:1": 0.1, "HP:2": 0.9}
	a := map[string]struct{}{"HP:1": {}, "HP:2": {}, "HP:3": {}}
	b := map[string]struct{}{"HP:1": {}, "HP:2": {}, "HP:4": {}}

	mica, micaIC, ok := mostInformativeCommonAncestor(a, b, ic)
	require.True(t, ok)
	assert.Equal(t, "HP:2", mica)
	assert.Equal(t, 0.9, micaIC)
}

func TestCalculateRelevanceProducesBoundedScoresWithNoSelfPairs(t *testing.T) {
	store, _ := buildFixtureGraph(t)
	ctx := context.Background()

	engine := &Engine{Graph: store, Workers: 2}
	require.NoError(t, engine.Calculate(ctx, model.MethodRelevance, model.PrefixHPO, model.PrefixHGNCSymbol, 0))

	count, err := store.CountSimilarityRelationships(ctx, model.PrefixHPO, model.PrefixHPO)
	require.NoError(t, err)
	assert.Greater(t, count, int64(0))

	edges, err := store.GetAnnotationGraph(ctx, model.PrefixHPO, model.PrefixHGNCSymbol)
	require.NoError(t, err)
	assert.NotEmpty(t, edges)

	iter, err := store.GetSimilarTermsIter(ctx, graph.SimilarTermsQuery{
		Prefix: model.PrefixHPO, ConceptIDs: []string{"HP:1", "HP:2", "HP:3", "HP:4"}, SamePrefix: true,
	})
	require.NoError(t, err)
	defer iter.Close()
	for {
		r, ok, err := iter.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		for _, g := range r.Groups {
			for _, s := range g.Similar {
				assert.NotEqual(t, r.ConceptID, s.ConceptID)
				assert.GreaterOrEqual(t, s.Score, 0.0)
				assert.LessOrEqual(t, s.Score, 1.0)
			}
		}
	}
}

func TestCalculateCoAnnotationWritesSimilarityEdges(t *testing.T) {
	store, _ := buildFixtureGraph(t)
	ctx := context.Background()

	engine := &Engine{Graph: store, Workers: 2}
	require.NoError(t, engine.Calculate(ctx, model.MethodCoAnnotationVec, model.PrefixHPO, model.PrefixHGNCSymbol, 0))

	count, err := store.CountSimilarityRelationships(ctx, model.PrefixHPO, model.PrefixHPO)
	require.NoError(t, err)
	assert.Greater(t, count, int64(0))
}

func TestCoAnnotationScoreWithinUnitRangeAndOrderIndependent(t *testing.T) {
	a := map[string]struct{}{"G1": {}, "G2": {}}
	b := map[string]struct{}{"G2": {}, "G3": {}}

	score, ok := coAnnotationScore(a, b, 3)
	require.True(t, ok)
	scoreRev, okRev := coAnnotationScore(b, a, 3)
	require.True(t, okRev)

	assert.Equal(t, score, scoreRev)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestPartnerPrefixesFindsRegisteredPairs(t *testing.T) {
	partners := partnerPrefixes(model.PrefixHPO)
	assert.Contains(t, partners, model.PrefixORDO)
	assert.Contains(t, partners, model.PrefixHGNCSymbol)
}
