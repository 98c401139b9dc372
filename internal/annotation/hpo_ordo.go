package annotation

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"bioterms/internal/model"
)

const hoomFileName = "hoom_orphanet.owl"

// NewHPOORDOLoader builds the ORDO <-> HPO annotation loader from the
// HOOM (HPO-ORDO Ontological Module) mapping, which encodes each
// association as an owl:Class whose local name follows the pattern
// Orpha:<ordoId>_HP:<hpoId>_FREQ:<frequencyId>.
func NewHPOORDOLoader(deps Deps) Loader {
	meta := Metadata{
		Name:          "HPO - ORDO Ontological Module",
		PrefixA:       model.PrefixORDO,
		PrefixB:       model.PrefixHPO,
		ExpectedFiles: []string{hoomFileName},
	}
	sources := []DownloadSource{
		{URL: "https://data.bioontology.org/ontologies/HOOM/download", FileName: hoomFileName},
	}
	return NewGenericLoader(meta, sources, parseHPOORDO, deps)
}

var hoomClassNamePattern = regexp.MustCompile(`Orpha:(\d+)_HP:(\d+)_FREQ:(\d+)`)

func parseHPOORDO(dataDir string) ([]model.Annotation, error) {
	path := filepath.Join(dataDir, "annotations", hoomFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing HOOM file "+path, err)
	}
	defer f.Close()

	var annotations []model.Annotation
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "rdf:about") {
			continue
		}
		m := hoomClassNamePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ordoID, hpoID, frequencyID := m[1], m[2], m[3]
		frequency := "UN"
		if code, ok := hpoFrequencyCodes[frequencyID]; ok {
			frequency = code
		}
		annotations = append(annotations, model.Annotation{
			PrefixFrom:    model.PrefixORDO,
			ConceptIDFrom: ordoID,
			PrefixTo:      model.PrefixHPO,
			ConceptIDTo:   hpoID,
			Properties:    map[string]string{"frequency": frequency},
		})
	}

	return annotations, nil
}
