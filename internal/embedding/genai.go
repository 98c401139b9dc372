package embedding

import (
	"context"
	"fmt"

	"bioterms/internal/logging"

	"google.golang.org/genai"
)

// genaiMaxBatch is the largest batch the GenAI EmbedContent API accepts in
// one request; larger concept batches are chunked and concatenated.
const genaiMaxBatch = 100

// genaiDimensions is the output dimensionality requested from the API.
// gemini-embedding-001 supports truncating to this value via
// OutputDimensionality; bioterms standardizes on it across vocabularies so a
// single qdrant/sqlite-vec collection can hold every prefix.
const genaiDimensions = 3072

func int32Ptr(i int32) *int32 { return &i }

// GenAIEngine embeds concept text using Google's Gemini API.
type GenAIEngine struct {
	client   *genai.Client
	model    string
	taskType string
}

// NewGenAIEngine builds a GenAI-backed engine. model and taskType fall back
// to bioterms' defaults (gemini-embedding-001, SEMANTIC_SIMILARITY) when
// empty, matching config.DefaultConfig.
func NewGenAIEngine(apiKey, model, taskType string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai embedding provider requires an API key")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if taskType == "" {
		taskType = "SEMANTIC_SIMILARITY"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	logging.Embedding("genai engine ready: model=%s task_type=%s", model, taskType)
	return &GenAIEngine{client: client, model: model, taskType: taskType}, nil
}

// Embed generates an embedding for a single concept text.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedChunk(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds concept texts, chunking into genaiMaxBatch-sized
// requests and concatenating the results back into original order.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= genaiMaxBatch {
		return e.embedChunk(ctx, texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += genaiMaxBatch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		end := start + genaiMaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		chunk, err := e.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunk [%d:%d]: %w", start, end, err)
		}
		vectors = append(vectors, chunk...)
	}
	return vectors, nil
}

func (e *GenAIEngine) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents,
		&genai.EmbedContentConfig{OutputDimensionality: int32Ptr(genaiDimensions)})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai embed: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Dimensions returns the dimensionality of embeddings this engine produces.
func (e *GenAIEngine) Dimensions() int { return genaiDimensions }

// Name identifies the engine for logging.
func (e *GenAIEngine) Name() string { return fmt.Sprintf("genai:%s", e.model) }
