package vocab

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

const ncitFlatFileName = "Thesaurus.txt"

// NewNCITLoader builds the NCI Thesaurus loader. Keying is the `code`
// column; pipe-delimited `parents` -> IS_A; Obsolete_Concept property ->
// DEPRECATED. The NCIt flat file is tab-delimited with a fixed column
// layout: code, concept IRI, parents (pipe-delimited codes), synonyms
// (pipe-delimited), definition, display name, concept status, semantic type.
func NewNCITLoader(deps Deps) Loader {
	meta := Metadata{
		Name:   "NCI Thesaurus",
		Prefix: model.PrefixNCIT,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationGeneric},
		SimilarityMethods: []model.SimilarityMethod{model.MethodRelevance, model.MethodCoAnnotationVec},
		ExpectedFiles: []string{ncitFlatFileName},
	}
	sources := []DownloadSource{
		{URL: "https://evs.nci.nih.gov/ftp1/NCI_Thesaurus/Thesaurus.txt", FileName: ncitFlatFileName},
	}
	return NewGenericLoader(meta, sources, parseNCIT, deps)
}

func parseNCIT(dataDir string) (*ParseResult, error) {
	path := filepath.Join(dataDir, string(model.PrefixNCIT), ncitFlatFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing NCIT flat file "+path, err)
	}
	defer f.Close()

	result := &ParseResult{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 8 {
			logging.VocabDebug("NCIT: skipping malformed line %d", lineNum)
			continue
		}

		code := cols[0]
		parents := splitNonEmpty(cols[2], "|")
		synonyms := splitNonEmpty(cols[3], "|")
		definition := cols[4]
		displayName := cols[5]
		conceptStatus := cols[6]

		status := model.StatusActive
		if conceptStatus == "Obsolete_Concept" {
			status = model.StatusDeprecated
		}

		result.Concepts = append(result.Concepts, &model.Concept{
			Prefix:     model.PrefixNCIT,
			ConceptID:  code,
			Label:      displayName,
			Definition: definition,
			Synonyms:   synonyms,
			Status:     status,
		})

		for _, parent := range parents {
			result.Relationships = append(result.Relationships, model.InternalRelationship{
				Prefix: model.PrefixNCIT, FromID: code, ToID: parent, Label: model.RelationIsA,
			})
		}
	}

	return result, nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
