// Package embedding turns concept text (label, definition, synonyms) into
// the vectors the vector store indexes. Two providers back the
// EmbeddingEngine interface: a local Ollama server and Google's GenAI API.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// EmbeddingEngine generates vector embeddings for concept text.
type EmbeddingEngine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one round trip
	// where the provider supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings this engine produces.
	Dimensions() int

	// Name identifies the engine (provider:model) for logging.
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	// Provider: "ollama" or "genai"
	Provider string `yaml:"provider"`

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	GenAIAPIKey string `yaml:"-"`
	GenAIModel  string `yaml:"genai_model"`

	// TaskType for GenAI: "SEMANTIC_SIMILARITY", "RETRIEVAL_QUERY", "RETRIEVAL_DOCUMENT"
	TaskType string `yaml:"task_type"`
}

// NewEngine constructs the provider named by cfg.Provider.
func NewEngine(cfg Config) (EmbeddingEngine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	logging.Embedding("building embedding engine: provider=%s", cfg.Provider)

	switch cfg.Provider {
	case "ollama":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	case "genai":
		return NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel, cfg.TaskType)
	default:
		logging.Get(logging.CategoryEmbedding).Error("unsupported embedding provider: %s", cfg.Provider)
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}
}

// conceptText renders the text a concept's embedding is computed over,
// grounded on the original embed_concepts assembly: "label: definition
// (synonym synonym)".
func conceptText(c *model.Concept) string {
	var sb strings.Builder
	if c.Label != "" {
		sb.WriteString(c.Label)
		sb.WriteString(": ")
	}
	if c.Definition != "" {
		sb.WriteString(c.Definition)
		sb.WriteString(" ")
	}
	if len(c.Synonyms) > 0 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(c.Synonyms, " "))
		sb.WriteString(")")
	}
	return strings.Trim(sb.String(), " :")
}

// EmbedConcepts renders each concept's embedding text and embeds the batch
// in one call, returning vectors in the same order as concepts. This is the
// seam the ingest orchestrator's vocabulary-embed pipeline drives.
func EmbedConcepts(ctx context.Context, engine EmbeddingEngine, concepts []*model.Concept) ([][]float32, error) {
	if len(concepts) == 0 {
		return nil, nil
	}
	texts := make([]string, len(concepts))
	for i, c := range concepts {
		texts[i] = conceptText(c)
	}
	logging.EmbeddingDebug("EmbedConcepts: embedding %d concepts via %s", len(concepts), engine.Name())
	vectors, err := engine.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed concepts: %w", err)
	}
	if len(vectors) != len(concepts) {
		return nil, fmt.Errorf("embed concepts: got %d vectors for %d concepts", len(vectors), len(concepts))
	}
	return vectors, nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical, 0 means orthogonal.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dotProduct, aMagnitude, bMagnitude float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i] * b[i])
		aMagnitude += float64(a[i] * a[i])
		bMagnitude += float64(b[i] * b[i])
	}

	if aMagnitude == 0 || bMagnitude == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(aMagnitude) * math.Sqrt(bMagnitude)), nil
}

// SimilarityResult is a single FindTopK result.
type SimilarityResult struct {
	Index      int
	Similarity float64
}

// FindTopK returns the indices of the top K most similar vectors to the
// query, by cosine similarity, descending.
func FindTopK(query []float32, corpus [][]float32, k int) ([]SimilarityResult, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "FindTopK")
	defer timer.Stop()

	if k <= 0 {
		k = 10
	}

	results := make([]SimilarityResult, 0, len(corpus))
	for i, vec := range corpus {
		similarity, err := CosineSimilarity(query, vec)
		if err != nil {
			continue
		}
		results = append(results, SimilarityResult{Index: i, Similarity: similarity})
	}

	sortStart := time.Now()
	for i := 0; i < len(results) && i < k; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Similarity > results[i].Similarity {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
	logging.EmbeddingDebug("FindTopK: sorted %d candidates in %v", len(results), time.Since(sortStart))

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
