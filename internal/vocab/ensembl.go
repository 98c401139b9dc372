package vocab

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"bioterms/internal/model"
)

const ensemblGTFFileName = "ensembl.gtf"

// NewEnsemblLoader builds the Ensembl gene model loader from a GTF
// annotation file. Keying is gene_id/transcript_id/exon_id/protein_id
// (whichever the GTF feature line carries); transcript->gene, exon-
// >transcript, and CDS->transcript all become PART_OF edges; gene_name ->
// HAS_SYMBOL annotation to the HGNC_SYMBOL vocabulary.
func NewEnsemblLoader(deps Deps) Loader {
	meta := Metadata{
		Name:   "Ensembl",
		Prefix: model.PrefixEnsembl,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationHasSymbol},
		SimilarityMethods: []model.SimilarityMethod{},
		ExpectedFiles: []string{ensemblGTFFileName},
	}
	sources := []DownloadSource{
		{
			URL:      "https://ftp.ensembl.org/pub/current_gtf/homo_sapiens/Homo_sapiens.GRCh38.gtf.gz",
			FileName: ensemblGTFFileName,
			Unpack:   UnpackGzip,
		},
	}
	return NewGenericLoader(meta, sources, parseEnsembl, deps)
}

var gtfAttrPattern = regexp.MustCompile(`(\w+) "([^"]*)"`)

func parseGTFAttributes(raw string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range gtfAttrPattern.FindAllStringSubmatch(raw, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}

func parseEnsembl(dataDir string) (*ParseResult, error) {
	path := filepath.Join(dataDir, string(model.PrefixEnsembl), ensemblGTFFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing Ensembl GTF file "+path, err)
	}
	defer f.Close()

	result := &ParseResult{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	addConcept := func(id, typ string, chromosome string, start, end int64, strand string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		result.Concepts = append(result.Concepts, &model.Concept{
			Prefix:       model.PrefixEnsembl,
			ConceptID:    id,
			ConceptTypes: []string{typ},
			Status:       model.StatusActive,
			Extra: &model.ConceptExtra{
				Chromosome: chromosome,
				Start:      start,
				End:        end,
				Strand:     strand,
			},
		})
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 9 {
			continue
		}
		chromosome, feature, startStr, endStr, strand := cols[0], cols[2], cols[3], cols[4], cols[6]
		start, _ := strconv.ParseInt(startStr, 10, 64)
		end, _ := strconv.ParseInt(endStr, 10, 64)
		attrs := parseGTFAttributes(cols[8])

		geneID := attrs["gene_id"]
		transcriptID := attrs["transcript_id"]
		exonID := attrs["exon_id"]
		proteinID := attrs["protein_id"]
		geneName := attrs["gene_name"]

		switch feature {
		case "gene":
			addConcept(geneID, "gene", chromosome, start, end, strand)
			if geneName != "" {
				result.Annotations = append(result.Annotations, model.Annotation{
					PrefixFrom:     model.PrefixEnsembl,
					ConceptIDFrom:  geneID,
					PrefixTo:       model.PrefixHGNCSymbol,
					ConceptIDTo:    geneName,
					AnnotationType: model.AnnotationHasSymbol,
				})
			}
		case "transcript":
			addConcept(transcriptID, "transcript", chromosome, start, end, strand)
			if geneID != "" {
				result.Relationships = append(result.Relationships, model.InternalRelationship{
					Prefix: model.PrefixEnsembl, FromID: transcriptID, ToID: geneID, Label: model.RelationPartOf,
				})
			}
		case "exon":
			addConcept(exonID, "exon", chromosome, start, end, strand)
			if transcriptID != "" {
				result.Relationships = append(result.Relationships, model.InternalRelationship{
					Prefix: model.PrefixEnsembl, FromID: exonID, ToID: transcriptID, Label: model.RelationPartOf,
				})
			}
		case "CDS":
			if proteinID != "" {
				addConcept(proteinID, "protein", chromosome, start, end, strand)
			}
			if transcriptID != "" && proteinID != "" {
				result.Relationships = append(result.Relationships, model.InternalRelationship{
					Prefix: model.PrefixEnsembl, FromID: proteinID, ToID: transcriptID, Label: model.RelationPartOf,
				})
			}
		}
	}

	return result, nil
}
