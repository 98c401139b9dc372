package annotation

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"bioterms/internal/model"
)

const geneNCITFileName = "ncit_gene_mapping.txt"

// NewGeneNCITLoader builds the NCIT <-> HGNC_SYMBOL annotation loader
// from the NCIt-HGNC mapping file, a headerless two-column tab file of
// (ncitCode, "HGNC:<id>").
func NewGeneNCITLoader(deps Deps) Loader {
	meta := Metadata{
		Name:          "NCIT Mapping to HGNC Gene Symbol",
		PrefixA:       model.PrefixNCIT,
		PrefixB:       model.PrefixHGNCSymbol,
		ExpectedFiles: []string{geneNCITFileName},
	}
	sources := []DownloadSource{
		{URL: "https://evs.nci.nih.gov/ftp1/NCI_Thesaurus/Mappings/NCIt-HGNC_Mapping.txt", FileName: geneNCITFileName},
	}
	return NewGenericLoader(meta, sources, parseGeneNCIT, deps)
}

func parseGeneNCIT(dataDir string) ([]model.Annotation, error) {
	path := filepath.Join(dataDir, "annotations", geneNCITFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing NCIT gene mapping file "+path, err)
	}
	defer f.Close()

	var annotations []model.Annotation
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			continue
		}
		ncitID := cols[0]
		hgncSymbolID := strings.TrimPrefix(cols[1], "HGNC:")
		annotations = append(annotations, model.Annotation{
			PrefixFrom:    model.PrefixNCIT,
			ConceptIDFrom: ncitID,
			PrefixTo:      model.PrefixHGNCSymbol,
			ConceptIDTo:   hgncSymbolID,
		})
	}
	return annotations, nil
}
