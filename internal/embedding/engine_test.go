package embedding

import (
	"context"
	"testing"

	"bioterms/internal/model"
)

type fakeEngine struct {
	dims int
}

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEngine) Dimensions() int { return f.dims }
func (f *fakeEngine) Name() string    { return "fake" }

func TestConceptTextAssemblesLabelDefinitionSynonyms(t *testing.T) {
	c := &model.Concept{
		Label:      "Seizure",
		Definition: "An abnormal electrical discharge",
		Synonyms:   []string{"Fit", "Convulsion"},
	}
	got := conceptText(c)
	want := "Seizure: An abnormal electrical discharge (Fit Convulsion)"
	if got != want {
		t.Fatalf("conceptText = %q, want %q", got, want)
	}
}

func TestConceptTextOmitsMissingFields(t *testing.T) {
	c := &model.Concept{Label: "Seizure"}
	if got := conceptText(c); got != "Seizure" {
		t.Fatalf("conceptText = %q, want %q", got, "Seizure")
	}
}

func TestEmbedConceptsReturnsVectorsInOrder(t *testing.T) {
	engine := &fakeEngine{dims: 4}
	concepts := []*model.Concept{
		{ConceptID: "1", Label: "Seizure"},
		{ConceptID: "2", Label: "Ataxia"},
	}

	vectors, err := EmbedConcepts(context.Background(), engine, concepts)
	if err != nil {
		t.Fatalf("EmbedConcepts: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	if len(vectors[0]) != 4 || len(vectors[1]) != 4 {
		t.Fatalf("vectors have wrong dimensionality: %v", vectors)
	}
}

func TestEmbedConceptsEmptyInput(t *testing.T) {
	engine := &fakeEngine{dims: 4}
	vectors, err := EmbedConcepts(context.Background(), engine, nil)
	if err != nil {
		t.Fatalf("EmbedConcepts: %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected nil vectors for empty input, got %v", vectors)
	}
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	a := []float32{1, 0, 0}
	sim, err := CosineSimilarity(a, a)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if sim < 0.999 || sim > 1.001 {
		t.Fatalf("CosineSimilarity(identical) = %v, want ~1", sim)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestFindTopKOrdersDescending(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{
		{0, 1},
		{1, 0},
		{0.7, 0.7},
	}
	results, err := FindTopK(query, corpus, 2)
	if err != nil {
		t.Fatalf("FindTopK: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Index != 1 {
		t.Fatalf("top result index = %d, want 1 (exact match)", results[0].Index)
	}
}
