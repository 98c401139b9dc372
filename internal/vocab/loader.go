// Package vocab implements one loader per vocabulary (HPO, ORDO, SNOMED,
// NCIT, OMIM, HGNC, CTV3, Ensembl, Reactome), each a pure parse step plus
// a thin generic driver that writes the parsed result to the document and
// graph stores. Loaders are registered by prefix in a compile-time
// Registry built in init(), replacing the teacher's dynamic
// vocabulary.{name} string lookup.
package vocab

import (
	"context"
	"time"

	"bioterms/internal/logging"
	"bioterms/internal/model"
	"bioterms/internal/store/cache"
	"bioterms/internal/store/document"
	"bioterms/internal/store/graph"
)

// Metadata describes a vocabulary's static properties.
type Metadata struct {
	Name               string
	Prefix             model.Prefix
	SupportedAnnotations []model.AnnotationType
	SimilarityMethods  []model.SimilarityMethod
	ExpectedFiles      []string
	RequiresAPIKey     bool
	// RelatedPrefixes names companion prefixes this loader also populates
	// (e.g. HGNC populates HGNC_SYMBOL alongside HGNC) so the generic
	// driver can index and clean them up too.
	RelatedPrefixes []model.Prefix
}

// ParseResult is the pure output of a loader's Parse step.
type ParseResult struct {
	Concepts      []*model.Concept
	Relationships []model.InternalRelationship
	Annotations   []model.Annotation
}

// ParseFunc transforms the files living under dataDir into a ParseResult.
type ParseFunc func(dataDir string) (*ParseResult, error)

// Loader is the contract every vocabulary implements.
type Loader interface {
	Metadata() Metadata
	Download(ctx context.Context, redownload bool) error
	LoadFromFile(ctx context.Context, dropExisting bool) error
	DeleteData(ctx context.Context) error
}

// Deps bundles the store adapters and data directory every loader needs.
type Deps struct {
	DataDir     string
	DocStore    document.Store
	GraphStore  graph.Store
	Cache       cache.Store
	DocWorkers  int
}

// genericLoader implements download/load/delete generically over a
// per-vocabulary ParseFunc and a set of download sources, grounded on the
// teacher's pattern of small per-concern files composed behind one
// interface rather than one large switch.
type genericLoader struct {
	meta    Metadata
	sources []DownloadSource
	parse   ParseFunc
	deps    Deps
}

// NewGenericLoader builds a Loader from metadata, download sources, and a
// parse function. Used by every per-vocabulary file in this package.
func NewGenericLoader(meta Metadata, sources []DownloadSource, parse ParseFunc, deps Deps) Loader {
	return &genericLoader{meta: meta, sources: sources, parse: parse, deps: deps}
}

func (l *genericLoader) Metadata() Metadata { return l.meta }

func (l *genericLoader) Download(ctx context.Context, redownload bool) error {
	return downloadAll(ctx, l.deps.DataDir, l.meta.Prefix, l.sources, redownload)
}

func (l *genericLoader) LoadFromFile(ctx context.Context, dropExisting bool) error {
	logging.Vocab("loading vocabulary %s (dropExisting=%v)", l.meta.Prefix, dropExisting)

	if dropExisting {
		if err := l.DeleteData(ctx); err != nil {
			return err
		}
	}

	result, err := l.parse(l.deps.DataDir)
	if err != nil {
		return err
	}

	if err := l.deps.DocStore.CreateIndex(ctx, l.meta.Prefix, "nGrams", false, true); err != nil {
		return err
	}
	for _, related := range l.meta.RelatedPrefixes {
		if err := l.deps.DocStore.CreateIndex(ctx, related, "nGrams", false, true); err != nil {
			return err
		}
	}
	if err := l.deps.DocStore.SaveTerms(ctx, result.Concepts); err != nil {
		return err
	}
	if err := l.deps.GraphStore.SaveVocabularyGraph(ctx, result.Concepts, result.Relationships); err != nil {
		return err
	}
	if len(result.Annotations) > 0 {
		if err := l.deps.GraphStore.SaveAnnotations(ctx, result.Annotations); err != nil {
			return err
		}
	}

	if l.deps.Cache != nil {
		_ = l.deps.Cache.Delete(ctx, cache.VocabStatusKey(l.meta.Prefix))
	}

	logging.Vocab("loaded vocabulary %s: %d concepts, %d relationships, %d cross-annotations",
		l.meta.Prefix, len(result.Concepts), len(result.Relationships), len(result.Annotations))
	return nil
}

func (l *genericLoader) DeleteData(ctx context.Context) error {
	if err := l.deps.DocStore.DeleteAllForLabel(ctx, l.meta.Prefix); err != nil {
		return err
	}
	if err := l.deps.GraphStore.DeleteVocabularyGraph(ctx, l.meta.Prefix); err != nil {
		return err
	}
	for _, related := range l.meta.RelatedPrefixes {
		if err := l.deps.DocStore.DeleteAllForLabel(ctx, related); err != nil {
			return err
		}
		if err := l.deps.GraphStore.DeleteVocabularyGraph(ctx, related); err != nil {
			return err
		}
	}
	if l.deps.Cache != nil {
		_ = l.deps.Cache.Delete(ctx, cache.VocabStatusKey(l.meta.Prefix))
	}
	return nil
}

// Status reports the Absent/Downloaded/Loaded/Embedded state machine plus
// concept/relationship counts, per spec.md §4.7.
type Status struct {
	Prefix        model.Prefix     `json:"prefix"`
	State         model.IngestState `json:"state"`
	ConceptCount  int64            `json:"conceptCount"`
	RelationCount int64            `json:"relationCount"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Registry maps a vocabulary prefix to its constructor, the compile-time
// replacement for dynamic string-based module lookup (REDESIGN FLAGS).
var Registry = map[model.Prefix]func(deps Deps) Loader{}

func register(prefix model.Prefix, ctor func(deps Deps) Loader) {
	Registry[prefix] = ctor
}

func init() {
	register(model.PrefixHPO, NewHPOLoader)
	register(model.PrefixORDO, NewORDOLoader)
	register(model.PrefixSNOMED, NewSNOMEDLoader)
	register(model.PrefixNCIT, NewNCITLoader)
	register(model.PrefixOMIM, NewOMIMLoader)
	register(model.PrefixHGNC, NewHGNCLoader)
	register(model.PrefixCTV3, NewCTV3Loader)
	register(model.PrefixEnsembl, NewEnsemblLoader)
	register(model.PrefixReactome, NewReactomeLoader)
}
