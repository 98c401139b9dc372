package annotation

import (
	"encoding/json"
	"os"
	"path/filepath"

	"bioterms/internal/model"
)

const omimORDOFileName = "ordo_omim_alignment.json"

// NewOMIMORDOLoader builds the ORDO <-> OMIM annotation loader from
// Orphadata's en_product1 external-reference alignment export.
func NewOMIMORDOLoader(deps Deps) Loader {
	meta := Metadata{
		Name:          "ORDO - OMIM Alignment Data",
		PrefixA:       model.PrefixORDO,
		PrefixB:       model.PrefixOMIM,
		ExpectedFiles: []string{omimORDOFileName},
	}
	sources := []DownloadSource{
		{URL: "https://www.orphadata.com/data/json/en_product1.json.tar.gz", FileName: omimORDOFileName},
	}
	return NewGenericLoader(meta, sources, parseOMIMORDO, deps)
}

type ordoAlignmentDoc struct {
	JDBOR []ordoAlignmentRoot `json:"JDBOR"`
}

type ordoAlignmentRoot struct {
	DisorderList []ordoAlignmentDisorderList `json:"DisorderList"`
}

type ordoAlignmentDisorderList struct {
	Disorder []ordoAlignmentDisorder `json:"Disorder"`
}

type ordoAlignmentDisorder struct {
	OrphaCode             string                    `json:"OrphaCode"`
	ExternalReferenceList []ordoExternalReferenceList `json:"ExternalReferenceList"`
}

type ordoExternalReferenceList struct {
	Count             string                 `json:"count"`
	ExternalReference []ordoExternalReference `json:"ExternalReference"`
}

type ordoExternalReference struct {
	Source    string `json:"Source"`
	Reference string `json:"Reference"`
}

func parseOMIMORDO(dataDir string) ([]model.Annotation, error) {
	path := filepath.Join(dataDir, "annotations", omimORDOFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing ORDO-OMIM alignment file "+path, err)
	}

	var doc ordoAlignmentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, model.NewParseError(path, 0, "failed to parse ORDO-OMIM alignment JSON", err)
	}

	var annotations []model.Annotation
	if len(doc.JDBOR) == 0 || len(doc.JDBOR[0].DisorderList) == 0 {
		return annotations, nil
	}

	for _, disorder := range doc.JDBOR[0].DisorderList[0].Disorder {
		for _, refList := range disorder.ExternalReferenceList {
			if refList.Count == "0" {
				continue
			}
			for _, ref := range refList.ExternalReference {
				if ref.Source != "OMIM" {
					continue
				}
				annotations = append(annotations, model.Annotation{
					PrefixFrom:    model.PrefixORDO,
					ConceptIDFrom: disorder.OrphaCode,
					PrefixTo:      model.PrefixOMIM,
					ConceptIDTo:   ref.Reference,
				})
			}
		}
	}
	return annotations, nil
}
