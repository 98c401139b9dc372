package model

// InternalRelationship is a directed edge between two concepts of the same
// prefix. IS_A edges point from child to parent; REPLACED_BY edges point
// from a deprecated term to its successor.
type InternalRelationship struct {
	Prefix    Prefix
	FromID    string
	ToID      string
	Label     RelationLabel
	Properties map[string]string
}

// Annotation is a directed edge between concepts of two different
// vocabularies. The 5-tuple (PrefixFrom, ConceptIDFrom, PrefixTo,
// ConceptIDTo, AnnotationType) is its identity; re-saving with the same
// tuple replaces Properties rather than duplicating the edge.
type Annotation struct {
	PrefixFrom     Prefix
	ConceptIDFrom  string
	PrefixTo       Prefix
	ConceptIDTo    string
	AnnotationType AnnotationType
	Properties     map[string]string
}

// Key returns the 5-tuple identity of an Annotation.
func (a *Annotation) Key() AnnotationKey {
	return AnnotationKey{
		PrefixFrom: a.PrefixFrom, ConceptIDFrom: a.ConceptIDFrom,
		PrefixTo: a.PrefixTo, ConceptIDTo: a.ConceptIDTo,
		AnnotationType: a.AnnotationType,
	}
}

// AnnotationKey is the comparable identity of an Annotation.
type AnnotationKey struct {
	PrefixFrom     Prefix
	ConceptIDFrom  string
	PrefixTo       Prefix
	ConceptIDTo    string
	AnnotationType AnnotationType
}

// SimilarityEdge is a non-directional relationship materialized as a single
// directed edge whose Scores map accumulates one entry per
// method[:corpusPrefix] key. Writes merge into the existing key set; they
// never create a second edge between the same pair.
type SimilarityEdge struct {
	PrefixA    Prefix
	ConceptIDA string
	PrefixB    Prefix
	ConceptIDB string
	Scores     map[string]float64 // key: method or "method:corpusPrefix"
}

// CanonicalPairKey returns the scoring key for a pair, independent of
// argument order: min(a,b), max(a,b) lexicographically on the combined
// (prefix, conceptId) string.
func CanonicalPairKey(prefixA Prefix, idA string, prefixB Prefix, idB string) (Prefix, string, Prefix, string) {
	a := string(prefixA) + ":" + idA
	b := string(prefixB) + ":" + idB
	if a <= b {
		return prefixA, idA, prefixB, idB
	}
	return prefixB, idB, prefixA, idA
}

// ScoreKey builds the Scores map key for a method, optionally scoped to a
// corpus prefix.
func ScoreKey(method SimilarityMethod, corpusPrefix Prefix) string {
	if corpusPrefix == "" {
		return string(method)
	}
	return string(method) + ":" + string(corpusPrefix)
}
