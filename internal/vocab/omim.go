package vocab

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"bioterms/internal/model"
)

const omimFileName = "omim.owl"

// NewOMIMLoader builds the OMIM loader. OMIM publishes its class hierarchy
// as a small RDF/XML-like vocabulary close enough to OWL's subClassOf
// convention to reuse the shared OWL walker; conceptId is the last segment
// of the Class ID, Parents -> IS_A, "Moved from" annotations -> REPLACED_BY.
func NewOMIMLoader(deps Deps) Loader {
	meta := Metadata{
		Name:   "Online Mendelian Inheritance in Man",
		Prefix: model.PrefixOMIM,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationGeneric},
		SimilarityMethods: []model.SimilarityMethod{model.MethodRelevance, model.MethodCoAnnotationVec},
		ExpectedFiles: []string{omimFileName},
		RequiresAPIKey: true,
	}
	// OMIM downloads require an API key issued per-registrant. No source
	// URL is wired here and nothing in this module reads RequiresAPIKey or
	// fetches the file, so Download only creates the OMIM data directory
	// and omim.owl is placed there by hand.
	return NewGenericLoader(meta, nil, parseOMIM, deps)
}

func parseOMIM(dataDir string) (*ParseResult, error) {
	path := filepath.Join(dataDir, string(model.PrefixOMIM), omimFileName)
	classes, err := parseOWLClasses(path)
	if err != nil {
		return nil, err
	}
	result := owlClassesToResult(model.PrefixOMIM, classes, false)

	movedFrom, err := parseOMIMMovedFrom(path)
	if err != nil {
		return nil, err
	}
	for oldID, newID := range movedFrom {
		result.Relationships = append(result.Relationships, model.InternalRelationship{
			Prefix: model.PrefixOMIM, FromID: oldID, ToID: newID, Label: model.RelationReplacedBy,
		})
	}
	result.Relationships = resolveReplacedBy(result.Relationships)
	return result, nil
}

// parseOMIMMovedFrom scans comment annotations of the form
// "Moved from <id> to this entry" to recover retired-id -> current-id
// mappings the OWL subClassOf walk alone doesn't carry, since OMIM encodes
// this history as free-text comments rather than a typed property.
func parseOMIMMovedFrom(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing OMIM file "+path, err)
	}
	defer f.Close()

	moved := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentID string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, "rdf:about=") {
			if i := strings.Index(line, "rdf:about=\""); i >= 0 {
				rest := line[i+len("rdf:about=\""):]
				if j := strings.Index(rest, "\""); j >= 0 {
					currentID = iriLastSegment(rest[:j])
				}
			}
		}
		if strings.Contains(line, "Moved from") && currentID != "" {
			fields := strings.Fields(line)
			for i, f := range fields {
				if f == "from" && i+1 < len(fields) {
					moved[strings.Trim(fields[i+1], "., ")] = currentID
				}
			}
		}
	}
	return moved, nil
}
