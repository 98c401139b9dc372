package annotation

import (
	"encoding/xml"
	"os"
	"path/filepath"

	"bioterms/internal/model"
)

const geneORDOFileName = "ordo_gene_mapping.xml"

// NewGeneORDOLoader builds the ORDO <-> HGNC_SYMBOL annotation loader
// from Orphadata's en_product6 disorder-gene association export.
func NewGeneORDOLoader(deps Deps) Loader {
	meta := Metadata{
		Name:          "ORDO Mapping to HGNC Gene Symbol",
		PrefixA:       model.PrefixORDO,
		PrefixB:       model.PrefixHGNCSymbol,
		ExpectedFiles: []string{geneORDOFileName},
	}
	sources := []DownloadSource{
		{URL: "https://www.orphadata.com/data/xml/en_product6.xml", FileName: geneORDOFileName},
	}
	return NewGenericLoader(meta, sources, parseGeneORDO, deps)
}

type ordoGeneMappingDoc struct {
	XMLName      xml.Name           `xml:"JDBOR"`
	DisorderList ordoDisorderList   `xml:"DisorderList"`
}

type ordoDisorderList struct {
	Disorders []ordoDisorder `xml:"Disorder"`
}

type ordoDisorder struct {
	OrphaCode                 string                       `xml:"OrphaCode"`
	DisorderGeneAssociationList ordoGeneAssociationList    `xml:"DisorderGeneAssociationList"`
}

type ordoGeneAssociationList struct {
	Associations []ordoGeneAssociation `xml:"DisorderGeneAssociation"`
}

type ordoGeneAssociation struct {
	Gene ordoGene `xml:"Gene"`
}

type ordoGene struct {
	Symbol string `xml:"Symbol"`
}

func parseGeneORDO(dataDir string) ([]model.Annotation, error) {
	path := filepath.Join(dataDir, "annotations", geneORDOFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing ORDO gene mapping file "+path, err)
	}

	var doc ordoGeneMappingDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, model.NewParseError(path, 0, "failed to parse ORDO gene mapping XML", err)
	}

	var annotations []model.Annotation
	for _, disorder := range doc.DisorderList.Disorders {
		for _, assoc := range disorder.DisorderGeneAssociationList.Associations {
			if assoc.Gene.Symbol == "" {
				continue
			}
			annotations = append(annotations, model.Annotation{
				PrefixFrom:    model.PrefixORDO,
				ConceptIDFrom: disorder.OrphaCode,
				PrefixTo:      model.PrefixHGNCSymbol,
				ConceptIDTo:   assoc.Gene.Symbol,
			})
		}
	}
	return annotations, nil
}
