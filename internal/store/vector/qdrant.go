package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// QdrantStore is the primary vector-store backend: one Qdrant collection
// per vocabulary prefix, grounded on the original implementation's
// per-prefix collection-naming convention.
type QdrantStore struct {
	client *qdrant.Client
	dim    uint64
}

// NewQdrantStore dials a Qdrant instance over gRPC.
func NewQdrantStore(host string, port int, apiKey string, useTLS bool, dimensions int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, model.NewError(model.ErrTransientStore, "failed to connect to vector store", err)
	}
	logging.VectorStore("qdrant vector store connected to %s:%d", host, port)
	return &QdrantStore{client: client, dim: uint64(dimensions)}, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, prefix model.Prefix) error {
	name := collectionName(prefix)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return model.NewError(model.ErrTransientStore, "failed to check collection existence", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return model.NewError(model.ErrIndexCreation, "failed to create vector collection "+name, err)
	}
	logging.VectorStore("created qdrant collection %s (dim=%d)", name, s.dim)
	return nil
}

func (s *QdrantStore) InsertConcepts(ctx context.Context, prefix model.Prefix, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, prefix); err != nil {
		return err
	}

	name := collectionName(prefix)
	points := make([]*qdrant.PointStruct, 0, len(records))
	for i := range records {
		if records[i].VectorID == "" {
			records[i].VectorID = uuid.NewString()
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(records[i].VectorID),
			Vectors: qdrant.NewVectors(records[i].Vector...),
			Payload: qdrant.NewValueMap(map[string]any{"conceptId": records[i].ConceptID}),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
	}); err != nil {
		return model.NewError(model.ErrTransientStore, "failed to upsert vectors into "+name, err)
	}
	logging.VectorStoreDebug("upserted %d vectors into %s", len(points), name)
	return nil
}

func (s *QdrantStore) GetVectorsForPrefixIter(ctx context.Context, prefix model.Prefix) (Iterator, error) {
	name := collectionName(prefix)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.NewError(model.ErrFilesNotFound, fmt.Sprintf("vocabulary prefix %s has no vectors", prefix), nil)
	}
	return &qdrantIterator{ctx: ctx, client: s.client, collection: name, pageSize: ScrollPageSize}, nil
}

type qdrantIterator struct {
	ctx        context.Context
	client     *qdrant.Client
	collection string
	pageSize   uint32
	offset     *qdrant.PointId
	buf        []*qdrant.RetrievedPoint
	pos        int
	exhausted  bool
}

func (it *qdrantIterator) fetchPage() error {
	limit := it.pageSize
	resp, err := it.client.Scroll(it.ctx, &qdrant.ScrollPoints{
		CollectionName: it.collection,
		Limit:          &limit,
		Offset:         it.offset,
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return err
	}
	it.buf = resp
	it.pos = 0
	if len(resp) < int(it.pageSize) {
		it.exhausted = true
	} else {
		it.offset = resp[len(resp)-1].Id
	}
	return nil
}

func (it *qdrantIterator) Next(ctx context.Context) (*Record, bool, error) {
	for {
		if it.pos < len(it.buf) {
			p := it.buf[it.pos]
			it.pos++
			conceptID := ""
			if v, ok := p.Payload["conceptId"]; ok {
				conceptID = v.GetStringValue()
			}
			return &Record{ConceptID: conceptID, VectorID: pointIDString(p.Id), Vector: p.Vectors.GetVector().GetData()}, true, nil
		}
		if it.exhausted {
			return nil, false, nil
		}
		if err := it.fetchPage(); err != nil {
			return nil, false, err
		}
		if len(it.buf) == 0 {
			return nil, false, nil
		}
	}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uid := id.GetUuid(); uid != "" {
		return uid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func (it *qdrantIterator) Close() error { return nil }

func (s *QdrantStore) DeleteVectorsForPrefix(ctx context.Context, prefix model.Prefix) error {
	name := collectionName(prefix)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return model.NewError(model.ErrTransientStore, "failed to delete collection "+name, err)
	}
	logging.VectorStore("deleted qdrant collection %s", name)
	return nil
}

func (s *QdrantStore) SearchSimilar(ctx context.Context, prefix model.Prefix, query []float32, topK int) ([]Match, error) {
	name := collectionName(prefix)
	limit := uint64(topK)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, model.NewError(model.ErrTransientStore, "failed to query vector store", err)
	}

	matches := make([]Match, 0, len(resp))
	for _, p := range resp {
		conceptID := ""
		if v, ok := p.Payload["conceptId"]; ok {
			conceptID = v.GetStringValue()
		}
		matches = append(matches, Match{ConceptID: conceptID, Score: float64(p.Score)})
	}
	return matches, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
