package annotation

import (
	"path/filepath"

	"bioterms/internal/model"
)

const ordoSNOMEDMapFileName = "snomed_orphanet_map.txt"

// NewORDOSNOMEDLoader builds the SNOMED <-> ORDO annotation loader from
// the SNOMED CT Orphanet Simple Map refset.
func NewORDOSNOMEDLoader(deps Deps) Loader {
	meta := Metadata{
		Name:          "SNOMED CT Orphanet Map package",
		PrefixA:       model.PrefixSNOMED,
		PrefixB:       model.PrefixORDO,
		ExpectedFiles: []string{ordoSNOMEDMapFileName},
	}
	// SNOMED Orphanet map releases are distributed via NIH UMLS and
	// require an API key. No source URL is wired here and no key is passed
	// to this loader, so Download only creates the data directory and the
	// map file is placed there by hand.
	return NewGenericLoader(meta, nil, parseORDOSNOMED, deps)
}

func parseORDOSNOMED(dataDir string) ([]model.Annotation, error) {
	path := filepath.Join(dataDir, "annotations", ordoSNOMEDMapFileName)
	rows, err := readRF2MapFile(path)
	if err != nil {
		return nil, err
	}
	rows = dedupRF2MapByLatestEffectiveTime(rows)

	var annotations []model.Annotation
	for _, r := range rows {
		if r.Active != "1" {
			continue
		}
		annotations = append(annotations, model.Annotation{
			PrefixFrom:    model.PrefixSNOMED,
			ConceptIDFrom: r.ReferencedComponentID,
			PrefixTo:      model.PrefixORDO,
			ConceptIDTo:   r.MapTarget,
		})
	}
	return annotations, nil
}
