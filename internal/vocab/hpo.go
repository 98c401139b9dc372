package vocab

import (
	"path/filepath"

	"bioterms/internal/model"
)

const hpoOWLFileName = "hp.owl"

// NewHPOLoader builds the Human Phenotype Ontology loader. Keying and
// relationship extraction per the OWL subClassOf walk: conceptId is the
// IRI's last segment, subClassOf -> IS_A, hasAlternativeId -> REPLACED_BY,
// owl:deprecated -> DEPRECATED. The consider annotation is not read, so it
// yields no REPLACED_BY edge.
func NewHPOLoader(deps Deps) Loader {
	meta := Metadata{
		Name:   "Human Phenotype Ontology",
		Prefix: model.PrefixHPO,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationHasSymbol, model.AnnotationGeneric},
		SimilarityMethods: []model.SimilarityMethod{model.MethodRelevance, model.MethodCoAnnotationVec},
		ExpectedFiles: []string{hpoOWLFileName},
	}
	sources := []DownloadSource{
		{URL: "https://purl.obolibrary.org/obo/hp.owl", FileName: hpoOWLFileName},
	}
	return NewGenericLoader(meta, sources, parseHPO, deps)
}

func parseHPO(dataDir string) (*ParseResult, error) {
	path := filepath.Join(dataDir, string(model.PrefixHPO), hpoOWLFileName)
	classes, err := parseOWLClasses(path)
	if err != nil {
		return nil, err
	}
	return owlClassesToResult(model.PrefixHPO, classes, false), nil
}

// owlClassesToResult is shared between HPO and ORDO, both OWL-encoded
// ontologies with the same subClassOf/hasAlternativeId/deprecated
// conventions. includeBFOPartOf additionally emits edges from the
// BFO_0000050 "part of" restriction pattern ORDO uses to group clinical
// subtypes under disorders; ORDO treats this restriction as IS_A, not
// PART_OF (it links a subtype to its disorder the same way subClassOf
// does), so ExpandTermsIter's backward IS_A walk reaches it.
func owlClassesToResult(prefix model.Prefix, classes []owlClass, includeBFOPartOf bool) *ParseResult {
	result := &ParseResult{}
	for _, c := range classes {
		id := iriLastSegment(c.IRI)
		status := model.StatusActive
		if c.Deprecated {
			status = model.StatusDeprecated
		}
		result.Concepts = append(result.Concepts, &model.Concept{
			Prefix:     prefix,
			ConceptID:  id,
			Label:      c.Label,
			Definition: c.Definition,
			Comment:    c.Comment,
			Synonyms:   c.Synonyms,
			Status:     status,
		})

		for _, parent := range c.SubClassOf {
			result.Relationships = append(result.Relationships, model.InternalRelationship{
				Prefix: prefix,
				FromID: id,
				ToID:   iriLastSegment(parent),
				Label:  model.RelationIsA,
			})
		}
		if includeBFOPartOf {
			for _, whole := range c.PartOf {
				result.Relationships = append(result.Relationships, model.InternalRelationship{
					Prefix: prefix,
					FromID: id,
					ToID:   iriLastSegment(whole),
					Label:  model.RelationIsA,
				})
			}
		}
		for _, alt := range c.AlternativeIDs {
			result.Relationships = append(result.Relationships, model.InternalRelationship{
				Prefix: prefix,
				FromID: iriLastSegment(alt),
				ToID:   id,
				Label:  model.RelationReplacedBy,
			})
		}
	}

	result.Relationships = resolveReplacedBy(result.Relationships)
	return result
}

// resolveReplacedBy collapses transitive REPLACED_BY chains (A -> B -> C)
// into direct edges onto the final, non-replaced successor, so downstream
// consumers never need to walk the chain themselves. Per spec.md §9, this
// runs once at ingest time rather than on every query.
func resolveReplacedBy(rels []model.InternalRelationship) []model.InternalRelationship {
	successor := make(map[string]string)
	for _, r := range rels {
		if r.Label == model.RelationReplacedBy {
			successor[r.FromID] = r.ToID
		}
	}

	finalOf := func(id string) string {
		seen := make(map[string]bool)
		cur := id
		for {
			next, ok := successor[cur]
			if !ok || seen[next] {
				return cur
			}
			seen[cur] = true
			cur = next
		}
	}

	out := make([]model.InternalRelationship, 0, len(rels))
	for _, r := range rels {
		if r.Label == model.RelationReplacedBy {
			r.ToID = finalOf(r.ToID)
		}
		out = append(out, r)
	}
	return out
}
