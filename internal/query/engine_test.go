package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioterms/internal/model"
	"bioterms/internal/store/document"
	"bioterms/internal/store/graph"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	docStore, err := document.NewSQLiteStore(filepath.Join(dir, "doc.db"), 2)
	require.NoError(t, err)
	t.Cleanup(func() { docStore.Close() })

	graphStore, err := graph.NewSQLiteStore(filepath.Join(dir, "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { graphStore.Close() })

	ctx := context.Background()
	terms := []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "0001250", Label: "Seizure", Status: model.StatusActive},
		{Prefix: model.PrefixHPO, ConceptID: "0000118", Label: "Phenotypic abnormality", Status: model.StatusActive},
		{Prefix: model.PrefixHPO, ConceptID: "0000707", Label: "Abnormality of the nervous system", Status: model.StatusActive},
	}
	require.NoError(t, docStore.SaveTerms(ctx, terms))

	concepts := make([]*model.Concept, len(terms))
	copy(concepts, terms)
	rels := []model.InternalRelationship{
		{Prefix: model.PrefixHPO, FromID: "0000707", ToID: "0000118", Label: model.RelationIsA},
	}
	require.NoError(t, graphStore.SaveVocabularyGraph(ctx, concepts, rels))

	return &Engine{Document: docStore, Graph: graphStore}
}

func TestAutoCompleteV1AdvisoryOnShortQuery(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.AutoCompleteV1(context.Background(), model.PrefixHPO, "se", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Terms)
	assert.NotEmpty(t, res.Advisory)
}

func TestAutoCompleteV1FindsExactMatchFirst(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.AutoCompleteV1(context.Background(), model.PrefixHPO, "seizure", 5)
	require.NoError(t, err)
	require.NotEmpty(t, res.Terms)
	assert.Equal(t, "Seizure", res.Terms[0])
}

func TestAutoCompleteV2ReturnsValidationErrorOnShortQuery(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.AutoCompleteV2(context.Background(), model.PrefixHPO, "se", 5)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrValidation))
}

func TestAutoCompleteV2StructuredResult(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.AutoCompleteV2(context.Background(), model.PrefixHPO, "seizure", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "0001250", res[0].TermID)
}

func TestAutoCompleteV3StripsInternalFields(t *testing.T) {
	e := newTestEngine(t)
	iter, err := e.AutoCompleteV3(context.Background(), model.PrefixHPO, "seizure", 5)
	require.NoError(t, err)
	defer iter.Close()

	c, ok, err := iter.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, c.NGrams)
	assert.Empty(t, c.SearchText)
}

func TestExpandV1ReturnsDescendantsNotSelf(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.ExpandV1(context.Background(), model.PrefixHPO, []string{"0000118"}, 0)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Contains(t, res[0].Children, "0000707")
	assert.NotContains(t, res[0].Children, "0000118")
}

func TestParseConstraintRefRejectsMalformed(t *testing.T) {
	_, _, err := ParseConstraintRef("not-a-ref")
	require.Error(t, err)

	p, id, err := ParseConstraintRef("HPO:0001250")
	require.NoError(t, err)
	assert.Equal(t, model.PrefixHPO, p)
	assert.Equal(t, "0001250", id)
}
