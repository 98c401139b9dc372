package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bioterms/internal/annotation"
	"bioterms/internal/embedding"
	"bioterms/internal/logging"
	"bioterms/internal/model"
	"bioterms/internal/store/cache"
	"bioterms/internal/store/vector"
	"bioterms/internal/vocab"
)

// Orchestrator drives every vocabulary and annotation pair through
// download -> load -> embed -> delete. It has no similarity operation:
// similarity calculation runs through similarity.Engine over the graph
// store, outside the Orchestrator. It serializes ingest operations per prefix (and per
// annotation pair) with a lazily created mutex, following the teacher's
// LocalStore.mu bracket-the-critical-section discipline generalized from
// one lock to a map of them.
type Orchestrator struct {
	dataDir    string
	docWorkers int
	stores     *Stores

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewOrchestrator builds an Orchestrator over an already-constructed set
// of store adapters.
func NewOrchestrator(dataDir string, docWorkers int, stores *Stores) *Orchestrator {
	return &Orchestrator{
		dataDir:    dataDir,
		docWorkers: docWorkers,
		stores:     stores,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) lockFor(key string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[key]
	if !ok {
		l = &sync.Mutex{}
		o.locks[key] = l
	}
	return l
}

func (o *Orchestrator) vocabDeps() vocab.Deps {
	return vocab.Deps{
		DataDir:    o.dataDir,
		DocStore:   o.stores.Document,
		GraphStore: o.stores.Graph,
		Cache:      o.stores.Cache,
		DocWorkers: o.docWorkers,
	}
}

func (o *Orchestrator) annotationDeps() annotation.Deps {
	return annotation.Deps{
		DataDir:    o.dataDir,
		GraphStore: o.stores.Graph,
		Cache:      o.stores.Cache,
	}
}

func (o *Orchestrator) vocabLoader(prefix model.Prefix) (vocab.Loader, error) {
	ctor, ok := vocab.Registry[prefix]
	if !ok {
		return nil, model.NewError(model.ErrValidation, "no vocabulary registered for prefix "+string(prefix), nil)
	}
	return ctor(o.vocabDeps()), nil
}

func (o *Orchestrator) annotationLoader(a, b model.Prefix) (annotation.Loader, error) {
	ctor, ok := annotation.Registry[annotation.PairKey(a, b)]
	if !ok {
		return nil, model.NewError(model.ErrValidation, "no annotation pair registered for "+string(a)+"/"+string(b), nil)
	}
	return ctor(o.annotationDeps()), nil
}

// DownloadVocabulary fetches P's source files, redownloading even if
// already present when redownload is set, and advances the state sidecar
// to Downloaded.
func (o *Orchestrator) DownloadVocabulary(ctx context.Context, prefix model.Prefix, redownload bool) error {
	lock := o.lockFor(string(prefix))
	lock.Lock()
	defer lock.Unlock()

	loader, err := o.vocabLoader(prefix)
	if err != nil {
		return err
	}
	timer := logging.StartTimer(logging.CategoryIngest, "download:"+string(prefix))
	defer timer.Stop()

	if err := loader.Download(ctx, redownload); err != nil {
		return err
	}
	rec := readState(o.dataDir, prefix)
	rec.State = model.StateDownloaded
	rec.DownloadedAt = time.Now()
	return writeState(o.dataDir, rec)
}

// LoadVocabulary parses P's downloaded files and bulk-loads the document
// and graph stores, optionally dropping existing data first, and advances
// the state sidecar to Loaded.
func (o *Orchestrator) LoadVocabulary(ctx context.Context, prefix model.Prefix, dropExisting bool) error {
	lock := o.lockFor(string(prefix))
	lock.Lock()
	defer lock.Unlock()

	loader, err := o.vocabLoader(prefix)
	if err != nil {
		return err
	}
	timer := logging.StartTimer(logging.CategoryIngest, "load:"+string(prefix))
	defer timer.Stop()

	if err := loader.LoadFromFile(ctx, dropExisting); err != nil {
		return err
	}
	rec := readState(o.dataDir, prefix)
	rec.State = model.StateLoaded
	return writeState(o.dataDir, rec)
}

// EmbedVocabulary streams every loaded concept for P through the
// embedding engine in batches of vector.DefaultEmbedBatchSize, inserts the
// resulting vectors, and records the conceptId -> vectorId mapping back
// onto the document store. Advances the state sidecar to Embedded.
func (o *Orchestrator) EmbedVocabulary(ctx context.Context, prefix model.Prefix) error {
	lock := o.lockFor(string(prefix))
	lock.Lock()
	defer lock.Unlock()

	timer := logging.StartTimer(logging.CategoryIngest, "embed:"+string(prefix))
	defer timer.Stop()

	iter, err := o.stores.Document.GetTermsIter(ctx, prefix, 0)
	if err != nil {
		return err
	}
	defer iter.Close()

	batch := make([]*model.Concept, 0, vector.DefaultEmbedBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := o.embedBatch(ctx, prefix, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for {
		concept, ok, err := iter.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		batch = append(batch, concept)
		if len(batch) >= vector.DefaultEmbedBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	rec := readState(o.dataDir, prefix)
	rec.State = model.StateEmbedded
	logging.Ingest("embedded vocabulary %s", prefix)
	return writeState(o.dataDir, rec)
}

func (o *Orchestrator) embedBatch(ctx context.Context, prefix model.Prefix, concepts []*model.Concept) error {
	vectors, err := embedding.EmbedConcepts(ctx, o.stores.Embed, concepts)
	if err != nil {
		return err
	}

	records := make([]vector.Record, len(concepts))
	mapping := make(map[string]string, len(concepts))
	for i, c := range concepts {
		vectorID := uuid.NewString()
		records[i] = vector.Record{ConceptID: c.ConceptID, VectorID: vectorID, Vector: vectors[i]}
		mapping[c.ConceptID] = vectorID
	}

	if err := o.stores.Vector.InsertConcepts(ctx, prefix, records); err != nil {
		return err
	}
	return o.stores.Document.UpdateVectorMapping(ctx, prefix, mapping)
}

// DeleteVocabulary drops P from the document and graph stores, purges its
// cached status, and resets the state sidecar to Absent.
func (o *Orchestrator) DeleteVocabulary(ctx context.Context, prefix model.Prefix) error {
	lock := o.lockFor(string(prefix))
	lock.Lock()
	defer lock.Unlock()

	loader, err := o.vocabLoader(prefix)
	if err != nil {
		return err
	}
	if err := loader.DeleteData(ctx); err != nil {
		return err
	}
	if err := o.stores.Vector.DeleteVectorsForPrefix(ctx, prefix); err != nil {
		return err
	}
	return removeState(o.dataDir, prefix)
}

// VocabularyStatus returns P's current position in the ingest state
// machine plus concept/relationship counts, consulting the cache first
// and falling back to the graph store on a miss.
func (o *Orchestrator) VocabularyStatus(ctx context.Context, prefix model.Prefix) (model.VocabularyStatus, error) {
	if o.stores.Cache != nil {
		var cached model.VocabularyStatus
		if ok, _ := cache.GetJSON(ctx, o.stores.Cache, cache.VocabStatusKey(prefix), &cached); ok {
			return cached, nil
		}
	}

	conceptCount, err := o.stores.Graph.CountTerms(ctx, prefix)
	if err != nil {
		return model.VocabularyStatus{}, err
	}
	relCount, err := o.stores.Graph.CountInternalRelationships(ctx, prefix)
	if err != nil {
		return model.VocabularyStatus{}, err
	}

	rec := readState(o.dataDir, prefix)
	state := rec.State
	if conceptCount > 0 && state == model.StateAbsent {
		state = model.StateLoaded
	}

	status := model.VocabularyStatus{
		Prefix:            prefix,
		State:             state,
		ConceptCount:      conceptCount,
		RelationshipCount: relCount,
	}
	if !rec.DownloadedAt.IsZero() {
		status.DownloadedAt = rec.DownloadedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	if o.stores.Cache != nil {
		_ = cache.SetJSON(ctx, o.stores.Cache, cache.VocabStatusKey(prefix), status, cache.DefaultStatusTTL)
	}
	return status, nil
}

// DownloadAnnotation fetches the source files for an unordered (a, b)
// annotation pair.
func (o *Orchestrator) DownloadAnnotation(ctx context.Context, a, b model.Prefix, redownload bool) error {
	lock := o.lockFor(annotation.PairKey(a, b))
	lock.Lock()
	defer lock.Unlock()

	loader, err := o.annotationLoader(a, b)
	if err != nil {
		return err
	}
	return loader.Download(ctx, redownload)
}

// LoadAnnotation parses and loads the (a, b) annotation pair, enforcing
// that both source vocabularies are already loaded.
func (o *Orchestrator) LoadAnnotation(ctx context.Context, a, b model.Prefix, overwrite bool) error {
	lock := o.lockFor(annotation.PairKey(a, b))
	lock.Lock()
	defer lock.Unlock()

	loader, err := o.annotationLoader(a, b)
	if err != nil {
		return err
	}
	return loader.LoadFromFile(ctx, overwrite)
}

// DeleteAnnotation removes the (a, b) annotation pair's edges.
func (o *Orchestrator) DeleteAnnotation(ctx context.Context, a, b model.Prefix) error {
	lock := o.lockFor(annotation.PairKey(a, b))
	lock.Lock()
	defer lock.Unlock()

	loader, err := o.annotationLoader(a, b)
	if err != nil {
		return err
	}
	return loader.DeleteData(ctx)
}

// AnnotationStatus reports whether the (a, b) pair is loaded and its edge
// count.
func (o *Orchestrator) AnnotationStatus(ctx context.Context, a, b model.Prefix) (model.AnnotationStatus, error) {
	if o.stores.Cache != nil {
		var cached model.AnnotationStatus
		if ok, _ := cache.GetJSON(ctx, o.stores.Cache, cache.AnnotationStatusKey(a, b), &cached); ok {
			return cached, nil
		}
	}
	count, err := o.stores.Graph.CountAnnotations(ctx, a, b)
	if err != nil {
		return model.AnnotationStatus{}, err
	}
	status := model.AnnotationStatus{PrefixA: a, PrefixB: b, AnnotationCount: count, Loaded: count > 0}
	if o.stores.Cache != nil {
		_ = cache.SetJSON(ctx, o.stores.Cache, cache.AnnotationStatusKey(a, b), status, cache.DefaultStatusTTL)
	}
	return status, nil
}

// Stores exposes the underlying adapters for callers (e.g. the similarity
// engine, the query surface) that need to drive them directly.
func (o *Orchestrator) Stores() *Stores { return o.stores }
