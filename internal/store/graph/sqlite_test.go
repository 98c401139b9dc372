package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioterms/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExpandTermsIterReturnsDirectChildrenNotSelf(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	concepts := []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "0000118"},
		{Prefix: model.PrefixHPO, ConceptID: "0000707"},
		{Prefix: model.PrefixHPO, ConceptID: "0001250"},
	}
	rels := []model.InternalRelationship{
		{Prefix: model.PrefixHPO, FromID: "0000707", ToID: "0000118", Label: model.RelationIsA},
		{Prefix: model.PrefixHPO, FromID: "0001250", ToID: "0000707", Label: model.RelationIsA},
	}
	require.NoError(t, s.SaveVocabularyGraph(ctx, concepts, rels))

	iter, err := s.ExpandTermsIter(ctx, model.PrefixHPO, []string{"0000118"}, 1, 0)
	require.NoError(t, err)
	defer iter.Close()

	r, ok, err := iter.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0000118", r.ConceptID)
	assert.Contains(t, r.Descendants, "0000707")
	assert.NotContains(t, r.Descendants, "0000118")
	assert.NotContains(t, r.Descendants, "0001250", "depth=1 must not include grandchildren")
}

func TestExpandTermsUnboundedDepthReturnsTransitiveSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	concepts := []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "root"},
		{Prefix: model.PrefixHPO, ConceptID: "mid"},
		{Prefix: model.PrefixHPO, ConceptID: "leaf"},
	}
	rels := []model.InternalRelationship{
		{Prefix: model.PrefixHPO, FromID: "mid", ToID: "root", Label: model.RelationIsA},
		{Prefix: model.PrefixHPO, FromID: "leaf", ToID: "mid", Label: model.RelationIsA},
	}
	require.NoError(t, s.SaveVocabularyGraph(ctx, concepts, rels))

	iter, err := s.ExpandTermsIter(ctx, model.PrefixHPO, []string{"root"}, 0, 0)
	require.NoError(t, err)
	defer iter.Close()
	r, _, err := iter.Next(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mid", "leaf"}, r.Descendants)
}

func TestSaveAndDeleteVocabularyGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveVocabularyGraph(ctx, []*model.Concept{{Prefix: model.PrefixHPO, ConceptID: "a"}}, nil))
	n, err := s.CountTerms(ctx, model.PrefixHPO)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.DeleteVocabularyGraph(ctx, model.PrefixHPO))
	n, err = s.CountTerms(ctx, model.PrefixHPO)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSaveSimilarityScoresMergesByCanonicalPair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	edge := model.SimilarityEdge{
		PrefixA: model.PrefixHPO, ConceptIDA: "b", PrefixB: model.PrefixHPO, ConceptIDB: "a",
		Scores: map[string]float64{"relevance": 0.8},
	}
	require.NoError(t, s.SaveSimilarityScores(ctx, model.PrefixHPO, model.PrefixHPO, []model.SimilarityEdge{edge}, model.MethodRelevance, ""))

	count, err := s.CountSimilarityRelationships(ctx, model.PrefixHPO, model.PrefixHPO)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Re-saving with the same pair (reversed) and method must not duplicate.
	edge2 := model.SimilarityEdge{
		PrefixA: model.PrefixHPO, ConceptIDA: "a", PrefixB: model.PrefixHPO, ConceptIDB: "b",
		Scores: map[string]float64{"relevance": 0.9},
	}
	require.NoError(t, s.SaveSimilarityScores(ctx, model.PrefixHPO, model.PrefixHPO, []model.SimilarityEdge{edge2}, model.MethodRelevance, ""))
	count, err = s.CountSimilarityRelationships(ctx, model.PrefixHPO, model.PrefixHPO)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "merge must update score in place, not create a second edge")
}

func TestGetSimilarTermsIterFiltersByThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	edges := []model.SimilarityEdge{
		{PrefixA: model.PrefixHPO, ConceptIDA: "a", PrefixB: model.PrefixHPO, ConceptIDB: "high", Scores: map[string]float64{"relevance": 0.9}},
		{PrefixA: model.PrefixHPO, ConceptIDA: "a", PrefixB: model.PrefixHPO, ConceptIDB: "low", Scores: map[string]float64{"relevance": 0.1}},
	}
	require.NoError(t, s.SaveSimilarityScores(ctx, model.PrefixHPO, model.PrefixHPO, edges, model.MethodRelevance, ""))

	iter, err := s.GetSimilarTermsIter(ctx, SimilarTermsQuery{
		Prefix: model.PrefixHPO, ConceptIDs: []string{"a"}, Threshold: 0.5, SamePrefix: true, Limit: 10,
	})
	require.NoError(t, err)
	defer iter.Close()

	r, ok, err := iter.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, r.Groups, 1)
	assert.Len(t, r.Groups[0].Similar, 1)
	assert.Equal(t, "high", r.Groups[0].Similar[0].ConceptID)
}
