package annotation

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"bioterms/internal/model"
)

const geneHPOFileName = "genes_to_phenotype.txt"

// hpoFrequencyCodes maps the HPO frequency term id to the short code
// stored on the annotation's frequency property.
var hpoFrequencyCodes = map[string]string{
	"0040285": "E",  // Excluded
	"0040284": "VR", // Very rare
	"0040283": "OC", // Occasional
	"0040282": "F",  // Frequent
	"0040281": "VF", // Very frequent
	"0040280": "O",  // Obligate
}

// NewGeneHPOLoader builds the HGNC_SYMBOL <-> HPO gene-to-phenotype
// annotation loader from HPO's genes_to_phenotype.txt release file.
func NewGeneHPOLoader(deps Deps) Loader {
	meta := Metadata{
		Name:          "HGNC Gene Symbol Mapping to HPO",
		PrefixA:       model.PrefixHGNCSymbol,
		PrefixB:       model.PrefixHPO,
		ExpectedFiles: []string{geneHPOFileName},
	}
	sources := []DownloadSource{
		{
			URL:      "https://github.com/obophenotype/human-phenotype-ontology/releases/latest/download/genes_to_phenotype.txt",
			FileName: geneHPOFileName,
		},
	}
	return NewGenericLoader(meta, sources, parseGeneHPO, deps)
}

func parseGeneHPO(dataDir string) ([]model.Annotation, error) {
	path := filepath.Join(dataDir, "annotations", geneHPOFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing gene-to-phenotype file "+path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	col := map[string]int{}
	if scanner.Scan() {
		for i, h := range strings.Split(scanner.Text(), "\t") {
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
		cols := strings.Split(scanner.Text(), "\t")
		geneSymbol := idx("gene_symbol", cols)
		if geneSymbol == "" || geneSymbol == "-" {
			continue
		}
		hpoID := strings.TrimPrefix(idx("hpo_id", cols), "HP:")

		frequency := "UN"
		if raw := idx("frequency", cols); raw != "" && raw != "-" {
			parts := strings.Split(raw, ":")
			if code, ok := hpoFrequencyCodes[parts[len(parts)-1]]; ok {
				frequency = code
			}
		}

		annotations = append(annotations, model.Annotation{
			PrefixFrom:    model.PrefixHGNCSymbol,
			ConceptIDFrom: geneSymbol,
			PrefixTo:      model.PrefixHPO,
			ConceptIDTo:   hpoID,
			Properties:    map[string]string{"frequency": frequency},
		})
	}

	return annotations, nil
}
