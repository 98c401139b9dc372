package vocab

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"bioterms/internal/model"
)

const (
	ctv3TermsFileName       = "ctv3_terms.txt"
	ctv3HierarchyFileName   = "ctv3_hierarchy.txt"
	ctv3RedundancyFileName  = "ctv3_redundancy.txt"
)

// NewCTV3Loader builds the Clinical Terms Version 3 (Read Codes) loader.
// Keying is the concept id; term status not in {C, O} (current, optional)
// -> DEPRECATED; the hierarchy file -> IS_A; the redundancy map ->
// REPLACED_BY.
//
// ctv3_terms.txt: conceptId \t termStatus \t preferredTerm
// ctv3_hierarchy.txt: childId \t parentId
// ctv3_redundancy.txt: oldId \t newId
func NewCTV3Loader(deps Deps) Loader {
	meta := Metadata{
		Name:   "Clinical Terms Version 3",
		Prefix: model.PrefixCTV3,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationGeneric},
		SimilarityMethods: []model.SimilarityMethod{model.MethodRelevance, model.MethodCoAnnotationVec},
		ExpectedFiles: []string{ctv3TermsFileName, ctv3HierarchyFileName, ctv3RedundancyFileName},
	}
	// CTV3 is distributed under NHS Digital license terms, staged locally
	// rather than fetched from a public URL.
	return NewGenericLoader(meta, nil, parseCTV3, deps)
}

func parseCTV3(dataDir string) (*ParseResult, error) {
	base := filepath.Join(dataDir, string(model.PrefixCTV3))
	result := &ParseResult{}

	terms, err := readTabFile(filepath.Join(base, ctv3TermsFileName))
	if err != nil {
		return nil, err
	}
	for _, cols := range terms {
		if len(cols) < 3 {
			continue
		}
		conceptID, termStatus, preferredTerm := cols[0], cols[1], cols[2]
		status := model.StatusActive
		if termStatus != "C" && termStatus != "O" {
			status = model.StatusDeprecated
		}
		result.Concepts = append(result.Concepts, &model.Concept{
			Prefix:    model.PrefixCTV3,
			ConceptID: conceptID,
			Label:     preferredTerm,
			Status:    status,
		})
	}

	hierarchy, err := readTabFile(filepath.Join(base, ctv3HierarchyFileName))
	if err != nil {
		return nil, err
	}
	for _, cols := range hierarchy {
		if len(cols) < 2 {
			continue
		}
		result.Relationships = append(result.Relationships, model.InternalRelationship{
			Prefix: model.PrefixCTV3, FromID: cols[0], ToID: cols[1], Label: model.RelationIsA,
		})
	}

	redundancy, err := readTabFile(filepath.Join(base, ctv3RedundancyFileName))
	if err != nil {
		return nil, err
	}
	for _, cols := range redundancy {
		if len(cols) < 2 {
			continue
		}
		result.Relationships = append(result.Relationships, model.InternalRelationship{
			Prefix: model.PrefixCTV3, FromID: cols[0], ToID: cols[1], Label: model.RelationReplacedBy,
		})
	}

	result.Relationships = resolveReplacedBy(result.Relationships)
	return result, nil
}

// readTabFile reads a tab-delimited file with no header, returning the
// split columns of each non-empty line. Shared by CTV3's three small
// flat-file formats.
func readTabFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing file "+path, err)
	}
	defer f.Close()

	var rows [][]string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	return rows, nil
}
