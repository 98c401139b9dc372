package model

// ExpansionResult is the output of a descendant expansion query.
type ExpansionResult struct {
	ConceptID   string   `json:"conceptId"`
	Descendants []string `json:"descendants"`
}

// SimilarConcept is a single scored neighbor in a SimilarTermResult group.
type SimilarConcept struct {
	ConceptID string  `json:"conceptId"`
	Score     float64 `json:"score"`
}

// SimilarGroup bundles the similar concepts found in one target prefix.
type SimilarGroup struct {
	Prefix  Prefix           `json:"prefix"`
	Similar []SimilarConcept `json:"similar"`
}

// SimilarTermResult is the output of a similar-term search for one source
// concept, grouped by target prefix.
type SimilarTermResult struct {
	ConceptID string         `json:"conceptId"`
	Groups    []SimilarGroup `json:"groups"`
}

// TranslatedTerm is a single target concept produced by translation.
type TranslatedTerm struct {
	ConceptID string  `json:"conceptId"`
	Prefix    Prefix  `json:"prefix"`
	Score     float64 `json:"score"`
}

// VocabularyStatus summarizes a vocabulary's position in the ingest state
// machine along with its current counts, as returned by status() and
// cached under vocab_status:{prefix}.
type VocabularyStatus struct {
	Prefix            Prefix      `json:"prefix"`
	State             IngestState `json:"state"`
	ConceptCount      int64       `json:"conceptCount"`
	RelationshipCount int64       `json:"relationshipCount"`
	DownloadedAt      string      `json:"downloadedAt,omitempty"`
}

// AnnotationStatus summarizes an annotation pair's load state, cached under
// anno_status:{p1}:{p2}.
type AnnotationStatus struct {
	PrefixA        Prefix `json:"prefixA"`
	PrefixB        Prefix `json:"prefixB"`
	AnnotationCount int64  `json:"annotationCount"`
	Loaded          bool   `json:"loaded"`
}
