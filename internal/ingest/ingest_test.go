package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioterms/internal/model"
	"bioterms/internal/store/cache"
	"bioterms/internal/store/document"
	"bioterms/internal/store/graph"
	"bioterms/internal/store/vector"
)

// fakeEmbedder is a deterministic stand-in for the Ollama/GenAI engines so
// EmbedVocabulary can be exercised without a network call.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }
func (fakeEmbedder) Name() string    { return "fake" }

func newTestOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()

	docStore, err := document.NewSQLiteStore(filepath.Join(dir, "doc.db"), 2)
	require.NoError(t, err)
	t.Cleanup(func() { docStore.Close() })

	graphStore, err := graph.NewSQLiteStore(filepath.Join(dir, "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { graphStore.Close() })

	vecStore, err := vector.NewSQLiteVecStore(filepath.Join(dir, "vector.db"))
	require.NoError(t, err)
	t.Cleanup(func() { vecStore.Close() })

	stores := &Stores{
		Document: docStore,
		Graph:    graphStore,
		Vector:   vecStore,
		Cache:    cache.NewMemoryStore(),
		Embed:    fakeEmbedder{},
	}
	return NewOrchestrator(dir, 2, stores), dir
}

func writeHPOFixture(t *testing.T, dataDir string) {
	t.Helper()
	vocabDir := filepath.Join(dataDir, string(model.PrefixHPO))
	require.NoError(t, os.MkdirAll(vocabDir, 0o755))
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:owl="http://www.w3.org/2002/07/owl#">
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0000001">
    <rdfs:label xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">All</rdfs:label>
  </owl:Class>
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0001250">
    <rdfs:label xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">Seizure</rdfs:label>
    <rdfs:subClassOf xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#" rdf:resource="http://purl.obolibrary.org/obo/HP_0000001"/>
  </owl:Class>
</rdf:RDF>`
	require.NoError(t, os.WriteFile(filepath.Join(vocabDir, "hp.owl"), []byte(doc), 0o644))
}

func TestLoadVocabularyAdvancesStateAndPopulatesStores(t *testing.T) {
	o, dir := newTestOrchestrator(t)
	writeHPOFixture(t, dir)
	ctx := context.Background()

	require.NoError(t, o.LoadVocabulary(ctx, model.PrefixHPO, false))

	status, err := o.VocabularyStatus(ctx, model.PrefixHPO)
	require.NoError(t, err)
	assert.Equal(t, model.StateLoaded, status.State)
	assert.Equal(t, int64(2), status.ConceptCount)
	assert.Equal(t, int64(1), status.RelationshipCount)
}

func TestEmbedVocabularyAdvancesStateToEmbedded(t *testing.T) {
	o, dir := newTestOrchestrator(t)
	writeHPOFixture(t, dir)
	ctx := context.Background()

	require.NoError(t, o.LoadVocabulary(ctx, model.PrefixHPO, false))
	require.NoError(t, o.EmbedVocabulary(ctx, model.PrefixHPO))

	rec := readState(dir, model.PrefixHPO)
	assert.Equal(t, model.StateEmbedded, rec.State)
}

func TestDeleteVocabularyResetsStateAndCounts(t *testing.T) {
	o, dir := newTestOrchestrator(t)
	writeHPOFixture(t, dir)
	ctx := context.Background()

	require.NoError(t, o.LoadVocabulary(ctx, model.PrefixHPO, false))
	require.NoError(t, o.DeleteVocabulary(ctx, model.PrefixHPO))

	status, err := o.VocabularyStatus(ctx, model.PrefixHPO)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.ConceptCount)

	rec := readState(dir, model.PrefixHPO)
	assert.Equal(t, model.StateAbsent, rec.State)
}

func TestLoadAnnotationFailsWhenVocabulariesNotLoaded(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	err := o.LoadAnnotation(ctx, model.PrefixHPO, model.PrefixORDO, false)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrVocabularyNotLoaded))
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := stateRecord{Prefix: model.PrefixSNOMED, State: model.StateDownloaded}
	require.NoError(t, writeState(dir, rec))

	got := readState(dir, model.PrefixSNOMED)
	assert.Equal(t, model.StateDownloaded, got.State)

	require.NoError(t, removeState(dir, model.PrefixSNOMED))
	got = readState(dir, model.PrefixSNOMED)
	assert.Equal(t, model.StateAbsent, got.State)
}
