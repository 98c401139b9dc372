package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConceptKey(t *testing.T) {
	c := &Concept{Prefix: PrefixHPO, ConceptID: "0001250"}
	assert.Equal(t, ConceptKey{Prefix: PrefixHPO, ConceptID: "0001250"}, c.Key())
}

func TestCanonicalPairKeyOrdersDeterministically(t *testing.T) {
	pa, ia, pb, ib := CanonicalPairKey(PrefixHPO, "0002", PrefixHPO, "0001")
	if pa != PrefixHPO || ia != "0001" || pb != PrefixHPO || ib != "0002" {
		t.Fatalf("expected canonical order to put 0001 first, got %s/%s then %s/%s", pa, ia, pb, ib)
	}

	// Order must not depend on argument order.
	pa2, ia2, pb2, ib2 := CanonicalPairKey(PrefixHPO, "0001", PrefixHPO, "0002")
	assert.Equal(t, pa, pa2)
	assert.Equal(t, ia, ia2)
	assert.Equal(t, pb, pb2)
	assert.Equal(t, ib, ib2)
}

func TestScoreKeyWithAndWithoutCorpus(t *testing.T) {
	assert.Equal(t, "relevance", ScoreKey(MethodRelevance, ""))
	assert.Equal(t, "relevance:HPO", ScoreKey(MethodRelevance, PrefixHPO))
}

func TestErrorIsKindUnwraps(t *testing.T) {
	base := NewError(ErrVocabularyNotLoaded, "HPO not loaded", nil)
	wrapped := errors.New("context: " + base.Error())
	assert.False(t, IsKind(wrapped, ErrVocabularyNotLoaded)) // plain errors.New does not unwrap to *Error

	assert.True(t, IsKind(base, ErrVocabularyNotLoaded))
	assert.Equal(t, StatusBadRequest, base.Status)
}
