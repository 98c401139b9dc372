package vocab

import (
	"path/filepath"

	"bioterms/internal/model"
)

const (
	snomedConceptFile      = "sct2_Concept_Snapshot.txt"
	snomedDescriptionFile  = "sct2_Description_Snapshot.txt"
	snomedRelationshipFile = "sct2_Relationship_Snapshot.txt"
)

// SNOMED relationship typeId/destination constants per spec.md §4.1.
const (
	snomedTypeIsA        = "116680003"
	snomedTypeReplacedBy = "370124000"
	snomedFullyDefinedID = "900000000000073002"
)

// NewSNOMEDLoader builds the SNOMED CT loader. Keying is the numeric
// concept id with latest-effectiveTime-wins dedup across RF2 snapshots;
// typeId 116680003 ("is a") -> IS_A, 370124000 ("same as", replacement) ->
// REPLACED_BY, active=0 -> DEPRECATED, definitionStatusId
// 900000000000073002 -> fullyDefined=true.
func NewSNOMEDLoader(deps Deps) Loader {
	meta := Metadata{
		Name:   "SNOMED CT",
		Prefix: model.PrefixSNOMED,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationGeneric},
		SimilarityMethods: []model.SimilarityMethod{model.MethodRelevance, model.MethodCoAnnotationVec},
		ExpectedFiles: []string{snomedConceptFile, snomedDescriptionFile, snomedRelationshipFile},
	}
	// SNOMED CT is licensed and distributed via national release centers
	// rather than a single stable public URL; downloads are expected to be
	// staged into the data directory out of band, so no sources are wired
	// here and Download only creates the SNOMED data directory; it does not
	// check whether the release files are present.
	return NewGenericLoader(meta, nil, parseSNOMED, deps)
}

func parseSNOMED(dataDir string) (*ParseResult, error) {
	base := filepath.Join(dataDir, string(model.PrefixSNOMED))

	concepts, err := readRF2File(filepath.Join(base, snomedConceptFile))
	if err != nil {
		return nil, err
	}
	concepts = dedupRF2ByLatestEffectiveTime(concepts)

	descriptions, err := readRF2File(filepath.Join(base, snomedDescriptionFile))
	if err != nil {
		return nil, err
	}
	descriptions = dedupRF2ByLatestEffectiveTime(descriptions)

	relationships, err := readRF2File(filepath.Join(base, snomedRelationshipFile))
	if err != nil {
		return nil, err
	}
	relationships = dedupRF2ByLatestEffectiveTime(relationships)

	// Description file columns (after id/effectiveTime/active/moduleId):
	// conceptId, languageCode, typeId, term, caseSignificanceId.
	// Fully Specified Names (typeId 900000000000003001) back the label.
	const fsnTypeID = "900000000000003001"
	fsnByConcept := make(map[string]string)
	for _, d := range descriptions {
		if len(d.Fields) < 4 {
			continue
		}
		conceptID, typeID, term := d.Fields[0], d.Fields[2], d.Fields[3]
		if typeID == fsnTypeID {
			fsnByConcept[conceptID] = term
		}
	}

	result := &ParseResult{}
	definitionStatus := make(map[string]string)
	for _, c := range concepts {
		// Concept file columns (after id/effectiveTime/active/moduleId):
		// definitionStatusId, which is Fields[0].
		if len(c.Fields) < 1 {
			continue
		}
		definitionStatus[c.ID] = c.Fields[0]

		status := model.StatusActive
		if c.Active == "0" {
			status = model.StatusDeprecated
		}
		fullyDefined := definitionStatus[c.ID] == snomedFullyDefinedID
		result.Concepts = append(result.Concepts, &model.Concept{
			Prefix:    model.PrefixSNOMED,
			ConceptID: c.ID,
			Label:     fsnByConcept[c.ID],
			Status:    status,
			Extra:     &model.ConceptExtra{FullyDefined: &fullyDefined},
		})
	}

	for _, r := range relationships {
		if r.Active != "1" {
			continue
		}
		// Relationship file columns (after id/effectiveTime/active/moduleId):
		// sourceId, destinationId, relationshipGroup, typeId,
		// characteristicTypeId, modifierId.
		if len(r.Fields) < 4 {
			continue
		}
		sourceID, destinationID, typeID := r.Fields[0], r.Fields[1], r.Fields[3]
		switch typeID {
		case snomedTypeIsA:
			result.Relationships = append(result.Relationships, model.InternalRelationship{
				Prefix: model.PrefixSNOMED, FromID: sourceID, ToID: destinationID, Label: model.RelationIsA,
			})
		case snomedTypeReplacedBy:
			result.Relationships = append(result.Relationships, model.InternalRelationship{
				Prefix: model.PrefixSNOMED, FromID: sourceID, ToID: destinationID, Label: model.RelationReplacedBy,
			})
		}
	}

	result.Relationships = resolveReplacedBy(result.Relationships)
	return result, nil
}
