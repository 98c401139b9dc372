package vocab

import (
	"path/filepath"

	"bioterms/internal/model"
)

const (
	reactomePathwayHierarchyFile = "ReactomePathwaysRelation.txt"
	reactomePathwayFile          = "ReactomePathways.txt"
	reactomeReactionOrderFile    = "ReactomeReactionOrder.txt"
	reactomeReactionPathwayFile  = "ReactomeReactionPathway.txt"
	reactomeGeneReactionFile     = "ReactomeGeneReaction.txt"
	reactomeGeneSymbolFile       = "ReactomeGeneSymbol.txt"
)

// NewReactomeLoader builds the Reactome pathway loader from Reactome's
// pre-exported flat files. Keying is the pre-exported st_id (stable id);
// pathway hierarchy -> PART_OF (child pathway part of parent pathway);
// reaction order within a pathway -> PRECEDED_BY; reaction->pathway ->
// PART_OF; gene<->reaction -> PART_OF; gene symbols -> HAS_SYMBOL
// annotation to the HGNC_SYMBOL vocabulary.
func NewReactomeLoader(deps Deps) Loader {
	meta := Metadata{
		Name:   "Reactome",
		Prefix: model.PrefixReactome,
		SupportedAnnotations: []model.AnnotationType{model.AnnotationHasSymbol},
		SimilarityMethods: []model.SimilarityMethod{model.MethodRelevance, model.MethodCoAnnotationVec},
		ExpectedFiles: []string{
			reactomePathwayHierarchyFile, reactomePathwayFile, reactomeReactionOrderFile,
			reactomeReactionPathwayFile, reactomeGeneReactionFile, reactomeGeneSymbolFile,
		},
	}
	sources := []DownloadSource{
		{URL: "https://reactome.org/download/current/ReactomePathwaysRelation.txt", FileName: reactomePathwayHierarchyFile},
		{URL: "https://reactome.org/download/current/ReactomePathways.txt", FileName: reactomePathwayFile},
	}
	return NewGenericLoader(meta, sources, parseReactome, deps)
}

func parseReactome(dataDir string) (*ParseResult, error) {
	base := filepath.Join(dataDir, string(model.PrefixReactome))
	result := &ParseResult{}
	seen := make(map[string]bool)

	addConcept := func(id, label, conceptType string, inferred bool) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		result.Concepts = append(result.Concepts, &model.Concept{
			Prefix:       model.PrefixReactome,
			ConceptID:    id,
			Label:        label,
			ConceptTypes: []string{conceptType},
			Status:       model.StatusActive,
			Extra:        &model.ConceptExtra{Inferred: &inferred},
		})
	}

	// ReactomePathways.txt: stId \t name \t species. Pathways are restricted
	// to human (Homo sapiens) since this deployment ingests a single
	// species slice of the Reactome graph.
	pathways, err := readTabFile(filepath.Join(base, reactomePathwayFile))
	if err != nil {
		return nil, err
	}
	for _, cols := range pathways {
		if len(cols) < 3 || cols[2] != "Homo sapiens" {
			continue
		}
		addConcept(cols[0], cols[1], "pathway", false)
	}

	// ReactomePathwaysRelation.txt: parentStId \t childStId.
	hierarchy, err := readTabFile(filepath.Join(base, reactomePathwayHierarchyFile))
	if err != nil {
		return nil, err
	}
	for _, cols := range hierarchy {
		if len(cols) < 2 {
			continue
		}
		parentID, childID := cols[0], cols[1]
		if !seen[parentID] || !seen[childID] {
			continue
		}
		result.Relationships = append(result.Relationships, model.InternalRelationship{
			Prefix: model.PrefixReactome, FromID: childID, ToID: parentID, Label: model.RelationPartOf,
		})
	}

	// ReactomeReactionPathway.txt: reactionStId \t reactionName \t pathwayStId.
	reactionPathways, err := readTabFile(filepath.Join(base, reactomeReactionPathwayFile))
	if err != nil {
		return nil, err
	}
	for _, cols := range reactionPathways {
		if len(cols) < 3 {
			continue
		}
		reactionID, reactionName, pathwayID := cols[0], cols[1], cols[2]
		addConcept(reactionID, reactionName, "reaction", false)
		result.Relationships = append(result.Relationships, model.InternalRelationship{
			Prefix: model.PrefixReactome, FromID: reactionID, ToID: pathwayID, Label: model.RelationPartOf,
		})
	}

	// ReactomeReactionOrder.txt: pathwayStId \t precedingReactionStId \t
	// followingReactionStId.
	reactionOrder, err := readTabFile(filepath.Join(base, reactomeReactionOrderFile))
	if err != nil {
		return nil, err
	}
	for _, cols := range reactionOrder {
		if len(cols) < 3 {
			continue
		}
		preceding, following := cols[1], cols[2]
		result.Relationships = append(result.Relationships, model.InternalRelationship{
			Prefix: model.PrefixReactome, FromID: following, ToID: preceding, Label: model.RelationPrecededBy,
		})
	}

	// ReactomeGeneReaction.txt: geneReactomeStId \t geneName \t reactionStId.
	geneReactions, err := readTabFile(filepath.Join(base, reactomeGeneReactionFile))
	if err != nil {
		return nil, err
	}
	for _, cols := range geneReactions {
		if len(cols) < 3 {
			continue
		}
		geneID, geneName, reactionID := cols[0], cols[1], cols[2]
		addConcept(geneID, geneName, "gene", false)
		result.Relationships = append(result.Relationships, model.InternalRelationship{
			Prefix: model.PrefixReactome, FromID: geneID, ToID: reactionID, Label: model.RelationPartOf,
		})
	}

	// ReactomeGeneSymbol.txt: geneReactomeStId \t hgncSymbol.
	geneSymbols, err := readTabFile(filepath.Join(base, reactomeGeneSymbolFile))
	if err != nil {
		return nil, err
	}
	for _, cols := range geneSymbols {
		if len(cols) < 2 {
			continue
		}
		geneID, symbol := cols[0], cols[1]
		result.Annotations = append(result.Annotations, model.Annotation{
			PrefixFrom:     model.PrefixReactome,
			ConceptIDFrom:  geneID,
			PrefixTo:       model.PrefixHGNCSymbol,
			ConceptIDTo:    symbol,
			AnnotationType: model.AnnotationHasSymbol,
		})
	}

	return result, nil
}
