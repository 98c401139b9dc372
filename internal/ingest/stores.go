// Package ingest implements the orchestrator that drives a vocabulary or
// annotation pair through download -> parse -> index-create -> bulk-load,
// and drives embedding afterwards. Similarity calculation is not driven
// from this package. It owns the
// per-prefix ingest-state sidecar and the store-backend selection the
// config names.
package ingest

import (
	"context"
	"fmt"

	"bioterms/internal/config"
	"bioterms/internal/embedding"
	"bioterms/internal/store/cache"
	"bioterms/internal/store/document"
	"bioterms/internal/store/graph"
	"bioterms/internal/store/vector"
)

// Stores bundles the concrete adapters selected for a run, built once by
// NewStores and shared across every vocabulary/annotation/similarity
// operation the orchestrator serves.
type Stores struct {
	Document document.Store
	Graph    graph.Store
	Vector   vector.Store
	Cache    cache.Store
	Embed    embedding.EmbeddingEngine
}

// NewStores selects and constructs the document/graph/vector/cache
// backends named by cfg.*Store.Driver, and the embedding engine named by
// cfg.Embedding.Provider. Driver names mirror the StoreConfig.Driver
// values documented in config.DefaultConfig: "sqlite"/"mongo" for the
// document store, "sqlite"/"neo4j" for the graph store, "sqlitevec"/
// "qdrant" for the vector store, "memory"/"redis" for the cache.
func NewStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	docStore, err := newDocumentStore(cfg)
	if err != nil {
		return nil, err
	}
	graphStore, err := newGraphStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	vectorStore, err := newVectorStore(cfg)
	if err != nil {
		return nil, err
	}
	cacheStore, err := newCacheStore(cfg)
	if err != nil {
		return nil, err
	}
	embedEngine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
	})
	if err != nil {
		return nil, err
	}

	return &Stores{Document: docStore, Graph: graphStore, Vector: vectorStore, Cache: cacheStore, Embed: embedEngine}, nil
}

func newDocumentStore(cfg *config.Config) (document.Store, error) {
	workers := cfg.ProcessLimit
	switch cfg.DocumentStore.Driver {
	case "mongo":
		return document.NewMongoStore(context.Background(), cfg.DocumentStore.DSN, "bioterms", workers)
	case "sqlite", "":
		return document.NewSQLiteStore(cfg.DocumentStore.DSN, workers)
	default:
		return nil, fmt.Errorf("unknown document store driver: %s", cfg.DocumentStore.Driver)
	}
}

func newGraphStore(ctx context.Context, cfg *config.Config) (graph.Store, error) {
	switch cfg.GraphStore.Driver {
	case "neo4j":
		user, pass := neo4jCredentials(cfg.GraphStore.DSN)
		return graph.NewNeo4jStore(ctx, cfg.GraphStore.DSN, user, pass)
	case "sqlite", "":
		return graph.NewSQLiteStore(cfg.GraphStore.DSN)
	default:
		return nil, fmt.Errorf("unknown graph store driver: %s", cfg.GraphStore.Driver)
	}
}

func newVectorStore(cfg *config.Config) (vector.Store, error) {
	switch cfg.VectorStore.Driver {
	case "qdrant":
		host, port, apiKey, useTLS, dim := parseQdrantDSN(cfg.VectorStore.DSN)
		return vector.NewQdrantStore(host, port, apiKey, useTLS, dim)
	case "sqlitevec", "":
		return vector.NewSQLiteVecStore(cfg.VectorStore.DSN)
	default:
		return nil, fmt.Errorf("unknown vector store driver: %s", cfg.VectorStore.Driver)
	}
}

func newCacheStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Driver {
	case "redis":
		return cache.NewRedisStore(cfg.Cache.DSN)
	case "memory", "":
		return cache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache driver: %s", cfg.Cache.Driver)
	}
}
