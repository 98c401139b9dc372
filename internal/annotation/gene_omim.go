package annotation

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"bioterms/internal/model"
)

const geneOMIMFileName = "omim_gene_mapping.csv"

// NewGeneOMIMLoader builds the OMIM <-> HGNC_SYMBOL annotation loader
// from OMIM's gene mapping export: a comma-separated file with a "Class
// ID" column (IRI whose last path segment is the OMIM id) and a
// pipe-delimited "Gene Symbol" column.
func NewGeneOMIMLoader(deps Deps) Loader {
	meta := Metadata{
		Name:          "OMIM Mapping to HGNC Gene Symbol",
		PrefixA:       model.PrefixOMIM,
		PrefixB:       model.PrefixHGNCSymbol,
		ExpectedFiles: []string{geneOMIMFileName},
		// OMIM downloads require a BioPortal API key. No source URL is
		// wired here and no key is passed to this loader, so Download only
		// creates the data directory and the file is placed there by hand.
	}
	return NewGenericLoader(meta, nil, parseGeneOMIM, deps)
}

func parseGeneOMIM(dataDir string) ([]model.Annotation, error) {
	path := filepath.Join(dataDir, "annotations", geneOMIMFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing OMIM gene mapping file "+path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	col := map[string]int{}
	if scanner.Scan() {
		for i, h := range strings.Split(scanner.Text(), ",") {
			col[h] = i
		}
	}
	idx := func(name string, cols []string) string {
		i, ok := col[name]
		if !ok || i >= len(cols) {
			return ""
		}
		return cols[i]
	}

	var annotations []model.Annotation
	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), ",")
		classID := idx("Class ID", cols)
		geneSymbols := idx("Gene Symbol", cols)
		if classID == "" || geneSymbols == "" {
			continue
		}

		omimID := classID
		if i := strings.LastIndex(classID, "/"); i >= 0 {
			omimID = classID[i+1:]
		}

		for _, symbol := range strings.Split(geneSymbols, "|") {
			if symbol == "" {
				continue
			}
			annotations = append(annotations, model.Annotation{
				PrefixFrom:    model.PrefixOMIM,
				ConceptIDFrom: omimID,
				PrefixTo:      model.PrefixHGNCSymbol,
				ConceptIDTo:   symbol,
			})
		}
	}
	return annotations, nil
}
