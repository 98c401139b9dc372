package model

// Prefix is the enumerated vocabulary tag that discriminates a Concept.
type Prefix string

const (
	PrefixHPO        Prefix = "HPO"
	PrefixORDO       Prefix = "ORDO"
	PrefixSNOMED     Prefix = "SNOMED"
	PrefixNCIT       Prefix = "NCIT"
	PrefixOMIM       Prefix = "OMIM"
	PrefixHGNC       Prefix = "HGNC"
	PrefixHGNCSymbol Prefix = "HGNC_SYMBOL"
	PrefixCTV3       Prefix = "CTV3"
	PrefixEnsembl    Prefix = "ENSEMBL"
	PrefixReactome   Prefix = "REACTOME"
)

// AllPrefixes lists every vocabulary prefix known to the system.
var AllPrefixes = []Prefix{
	PrefixHPO, PrefixORDO, PrefixSNOMED, PrefixNCIT, PrefixOMIM,
	PrefixHGNC, PrefixHGNCSymbol, PrefixCTV3, PrefixEnsembl, PrefixReactome,
}

// Status is a concept's lifecycle state within its source vocabulary.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusDeprecated Status = "DEPRECATED"
)

// RelationLabel names the kind of an internal (same-prefix) relationship.
type RelationLabel string

const (
	RelationIsA        RelationLabel = "IS_A"
	RelationPartOf     RelationLabel = "PART_OF"
	RelationPrecededBy RelationLabel = "PRECEDED_BY"
	RelationReplacedBy RelationLabel = "REPLACED_BY"
	RelationRelatedTo  RelationLabel = "related_to"
)

// AnnotationType names the kind of a cross-vocabulary annotation edge.
// The empty string is a valid, unnamed annotation type.
type AnnotationType string

const (
	AnnotationHasSymbol AnnotationType = "HAS_SYMBOL"
	AnnotationGeneric   AnnotationType = ""
)

// SimilarityMethod names a similarity-scoring algorithm.
type SimilarityMethod string

const (
	MethodRelevance       SimilarityMethod = "relevance"
	MethodCoAnnotationVec SimilarityMethod = "coannotation_vector"
)

// IngestState is a vocabulary's position in the Absent -> Downloaded ->
// Loaded -> Embedded state machine.
type IngestState string

const (
	StateAbsent     IngestState = "ABSENT"
	StateDownloaded IngestState = "DOWNLOADED"
	StateLoaded     IngestState = "LOADED"
	StateEmbedded   IngestState = "EMBEDDED"
)
