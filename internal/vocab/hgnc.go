package vocab

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"bioterms/internal/model"
)

const hgncFileName = "hgnc_complete_set.txt"

// NewHGNCLoader builds the HGNC gene nomenclature loader. Keying is the
// numeric tail of hgnc_id; alias_symbol entries produce HAS_SYMBOL
// cross-annotations to the HGNC_SYMBOL vocabulary (a flat string
// vocabulary of gene symbols, not a hierarchical ontology); a status other
// than Approved -> DEPRECATED. No REPLACED_BY edges are emitted for
// withdrawn or merged entries.
//
// File layout: hgnc_complete_set.txt is tab-delimited with a header row;
// the columns this loader reads are hgnc_id, symbol, name, alias_symbol
// (pipe-delimited), and status.
func NewHGNCLoader(deps Deps) Loader {
	meta := Metadata{
		Name:   "HUGO Gene Nomenclature Committee",
		Prefix: model.PrefixHGNC,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationHasSymbol},
		SimilarityMethods: []model.SimilarityMethod{},
		ExpectedFiles: []string{hgncFileName},
		RelatedPrefixes: []model.Prefix{model.PrefixHGNCSymbol},
	}
	sources := []DownloadSource{
		{URL: "https://storage.googleapis.com/public-download-files/hgnc/tsv/tsv/hgnc_complete_set.txt", FileName: hgncFileName},
	}
	return NewGenericLoader(meta, sources, parseHGNC, deps)
}

func parseHGNC(dataDir string) (*ParseResult, error) {
	path := filepath.Join(dataDir, string(model.PrefixHGNC), hgncFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing HGNC file "+path, err)
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

	result := &ParseResult{}
	symbolSeen := make(map[string]bool)

	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		hgncID := strings.TrimPrefix(idx("hgnc_id", cols), "HGNC:")
		symbol := idx("symbol", cols)
		name := idx("name", cols)
		aliases := splitNonEmpty(idx("alias_symbol", cols), "|")
		hgncStatus := idx("status", cols)

		status := model.StatusActive
		if hgncStatus != "Approved" {
			status = model.StatusDeprecated
		}

		result.Concepts = append(result.Concepts, &model.Concept{
			Prefix:    model.PrefixHGNC,
			ConceptID: hgncID,
			Label:     symbol,
			Definition: name,
			Status:    status,
		})

		if symbol != "" && !symbolSeen[symbol] {
			symbolSeen[symbol] = true
			result.Concepts = append(result.Concepts, &model.Concept{
				Prefix:    model.PrefixHGNCSymbol,
				ConceptID: symbol,
				Label:     symbol,
				Status:    model.StatusActive,
			})
		}

		for _, alias := range aliases {
			result.Annotations = append(result.Annotations, model.Annotation{
				PrefixFrom:     model.PrefixHGNC,
				ConceptIDFrom:  hgncID,
				PrefixTo:       model.PrefixHGNCSymbol,
				ConceptIDTo:    alias,
				AnnotationType: model.AnnotationHasSymbol,
			})
			if !symbolSeen[alias] {
				symbolSeen[alias] = true
				result.Concepts = append(result.Concepts, &model.Concept{
					Prefix:    model.PrefixHGNCSymbol,
					ConceptID: alias,
					Label:     alias,
					Status:    model.StatusActive,
				})
			}
		}
	}

	return result, nil
}
