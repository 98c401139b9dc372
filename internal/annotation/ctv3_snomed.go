package annotation

import (
	"path/filepath"

	"bioterms/internal/model"
)

const ctv3SNOMEDMapFileName = "ctv3_snomed_map.txt"

// NewCTV3SNOMEDLoader builds the SNOMED <-> CTV3 annotation loader from
// the SNOMED CT UK Simple Map refset (NHS TRUD release).
func NewCTV3SNOMEDLoader(deps Deps) Loader {
	meta := Metadata{
		Name:          "SNOMED Mapping to CTV3",
		PrefixA:       model.PrefixSNOMED,
		PrefixB:       model.PrefixCTV3,
		ExpectedFiles: []string{ctv3SNOMEDMapFileName},
	}
	// NHS TRUD releases require an API key. No source URL is wired here and
	// no key is passed to this loader, so Download only creates the data
	// directory and the map file is placed there by hand.
	return NewGenericLoader(meta, nil, parseCTV3SNOMED, deps)
}

func parseCTV3SNOMED(dataDir string) ([]model.Annotation, error) {
	path := filepath.Join(dataDir, "annotations", ctv3SNOMEDMapFileName)
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
			PrefixTo:      model.PrefixCTV3,
			ConceptIDTo:   r.MapTarget,
		})
	}
	return annotations, nil
}
