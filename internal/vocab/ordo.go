package vocab

import (
	"path/filepath"

	"bioterms/internal/model"
)

const ordoOWLFileName = "ordo.owl"

// NewORDOLoader builds the Orphanet Rare Disease Ontology loader. Shares
// HPO's OWL subClassOf/hasAlternativeId/deprecated conventions, additionally
// emitting IS_A edges from the BFO_0000050 "part of" restriction pattern
// ORDO uses to group clinical subtypes under disorders.
func NewORDOLoader(deps Deps) Loader {
	meta := Metadata{
		Name:   "Orphanet Rare Disease Ontology",
		Prefix: model.PrefixORDO,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationGeneric},
		SimilarityMethods: []model.SimilarityMethod{model.MethodRelevance, model.MethodCoAnnotationVec},
		ExpectedFiles: []string{ordoOWLFileName},
	}
	sources := []DownloadSource{
		{URL: "http://www.orphadata.org/data/ontologies/ordo/ORDO_en_4.4.owl", FileName: ordoOWLFileName},
	}
	return NewGenericLoader(meta, sources, parseORDO, deps)
}

func parseORDO(dataDir string) (*ParseResult, error) {
	path := filepath.Join(dataDir, string(model.PrefixORDO), ordoOWLFileName)
	classes, err := parseOWLClasses(path)
	if err != nil {
		return nil, err
	}
	return owlClassesToResult(model.PrefixORDO, classes, true), nil
}
