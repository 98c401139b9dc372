package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioterms/internal/model"
)

func TestSQLiteVecStoreInsertAndSearch(t *testing.T) {
	s, err := NewSQLiteVecStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	records := []Record{
		{ConceptID: "a", VectorID: "va", Vector: []float32{1, 0, 0}},
		{ConceptID: "b", VectorID: "vb", Vector: []float32{0, 1, 0}},
		{ConceptID: "c", VectorID: "vc", Vector: []float32{0.9, 0.1, 0}},
	}
	require.NoError(t, s.InsertConcepts(ctx, model.PrefixHPO, records))

	matches, err := s.SearchSimilar(ctx, model.PrefixHPO, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ConceptID)
	assert.Equal(t, "c", matches[1].ConceptID)
}

func TestSQLiteVecStoreDeleteAndIterate(t *testing.T) {
	s, err := NewSQLiteVecStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.InsertConcepts(ctx, model.PrefixHPO, []Record{
		{ConceptID: "a", VectorID: "va", Vector: []float32{1, 2, 3}},
	}))

	iter, err := s.GetVectorsForPrefixIter(ctx, model.PrefixHPO)
	require.NoError(t, err)
	defer iter.Close()

	r, ok, err := iter.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", r.ConceptID)
	assert.Equal(t, []float32{1, 2, 3}, r.Vector)

	require.NoError(t, s.DeleteVectorsForPrefix(ctx, model.PrefixHPO))
	iter2, err := s.GetVectorsForPrefixIter(ctx, model.PrefixHPO)
	require.NoError(t, err)
	defer iter2.Close()
	_, ok, err = iter2.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
