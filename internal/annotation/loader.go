// Package annotation implements one loader per unordered vocabulary pair,
// producing the cross-vocabulary edges spec.md §4.2 calls annotations:
// gene/phenotype associations, ontology cross-references, and
// terminology-to-terminology maps that span two prefixes rather than one.
package annotation

import (
	"context"
	"sort"
	"strings"

	"bioterms/internal/logging"
	"bioterms/internal/model"
	"bioterms/internal/store/cache"
	"bioterms/internal/store/graph"
)

// Metadata describes an annotation pair's static properties.
type Metadata struct {
	Name          string
	PrefixA       model.Prefix
	PrefixB       model.Prefix
	ExpectedFiles []string
}

// ParseFunc transforms the files living under dataDir into the annotation
// edge set for this pair.
type ParseFunc func(dataDir string) ([]model.Annotation, error)

// Loader is the contract every annotation pair implements.
type Loader interface {
	Metadata() Metadata
	Download(ctx context.Context, redownload bool) error
	LoadFromFile(ctx context.Context, overwrite bool) error
	DeleteData(ctx context.Context) error
}

// Deps bundles the store adapters and data directory every loader needs.
type Deps struct {
	DataDir    string
	GraphStore graph.Store
	Cache      cache.Store
}

type genericLoader struct {
	meta    Metadata
	sources []DownloadSource
	parse   ParseFunc
	deps    Deps
}

// NewGenericLoader builds a Loader from metadata, download sources, and a
// parse function. Used by every per-pair file in this package.
func NewGenericLoader(meta Metadata, sources []DownloadSource, parse ParseFunc, deps Deps) Loader {
	return &genericLoader{meta: meta, sources: sources, parse: parse, deps: deps}
}

func (l *genericLoader) Metadata() Metadata { return l.meta }

func (l *genericLoader) Download(ctx context.Context, redownload bool) error {
	return downloadAnnotationFiles(ctx, l.deps.DataDir, l.sources, redownload)
}

// LoadFromFile enforces the precondition that both source vocabularies
// already have term counts > 0 in the graph store (VocabularyNotLoaded
// otherwise), and is idempotent: if the pair already has annotations and
// overwrite is false, it returns without touching the store.
func (l *genericLoader) LoadFromFile(ctx context.Context, overwrite bool) error {
	logging.Annotation("loading annotation %s (overwrite=%v)", l.meta.Name, overwrite)

	countA, err := l.deps.GraphStore.CountTerms(ctx, l.meta.PrefixA)
	if err != nil {
		return err
	}
	if countA == 0 {
		return model.NewError(model.ErrVocabularyNotLoaded, "vocabulary "+string(l.meta.PrefixA)+" is not loaded", nil)
	}
	countB, err := l.deps.GraphStore.CountTerms(ctx, l.meta.PrefixB)
	if err != nil {
		return err
	}
	if countB == 0 {
		return model.NewError(model.ErrVocabularyNotLoaded, "vocabulary "+string(l.meta.PrefixB)+" is not loaded", nil)
	}

	existing, err := l.deps.GraphStore.CountAnnotations(ctx, l.meta.PrefixA, l.meta.PrefixB)
	if err != nil {
		return err
	}
	if existing > 0 && !overwrite {
		logging.Annotation("%s already loaded with %d entries, skipping", l.meta.Name, existing)
		return nil
	}

	annotations, err := l.parse(l.deps.DataDir)
	if err != nil {
		return err
	}

	if existing > 0 {
		if err := l.deps.GraphStore.DeleteAnnotations(ctx, l.meta.PrefixA, l.meta.PrefixB); err != nil {
			return err
		}
	}
	if err := l.deps.GraphStore.SaveAnnotations(ctx, annotations); err != nil {
		return err
	}

	if l.deps.Cache != nil {
		_ = l.deps.Cache.Delete(ctx, cache.AnnotationStatusKey(l.meta.PrefixA, l.meta.PrefixB))
	}

	logging.Annotation("loaded %s: %d annotations", l.meta.Name, len(annotations))
	return nil
}

func (l *genericLoader) DeleteData(ctx context.Context) error {
	if err := l.deps.GraphStore.DeleteAnnotations(ctx, l.meta.PrefixA, l.meta.PrefixB); err != nil {
		return err
	}
	if l.deps.Cache != nil {
		_ = l.deps.Cache.Delete(ctx, cache.AnnotationStatusKey(l.meta.PrefixA, l.meta.PrefixB))
	}
	return nil
}

// PairKey builds the canonical, order-independent registry key for an
// unordered prefix pair, mirroring the Python original's
// `_get_annotation_module_name` (sort, then join).
func PairKey(a, b model.Prefix) string {
	parts := []string{string(a), string(b)}
	sort.Strings(parts)
	return strings.Join(parts, "_")
}

// Registry maps an unordered prefix-pair key to its constructor, the
// compile-time replacement for the teacher's dynamic
// bioterms.annotation.{prefix1}_{prefix2} module lookup.
var Registry = map[string]func(deps Deps) Loader{}

func register(a, b model.Prefix, ctor func(deps Deps) Loader) {
	Registry[PairKey(a, b)] = ctor
}

func init() {
	register(model.PrefixHGNCSymbol, model.PrefixHPO, NewGeneHPOLoader)
	register(model.PrefixHPO, model.PrefixORDO, NewHPOORDOLoader)
	register(model.PrefixSNOMED, model.PrefixORDO, NewORDOSNOMEDLoader)
	register(model.PrefixNCIT, model.PrefixHGNCSymbol, NewGeneNCITLoader)
	register(model.PrefixOMIM, model.PrefixHGNCSymbol, NewGeneOMIMLoader)
	register(model.PrefixORDO, model.PrefixHGNCSymbol, NewGeneORDOLoader)
	register(model.PrefixSNOMED, model.PrefixCTV3, NewCTV3SNOMEDLoader)
	register(model.PrefixOMIM, model.PrefixORDO, NewOMIMORDOLoader)
}
