package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bioterms/internal/model"
)

// TestMain verifies the n-gram indexing worker pool (indexTerms's
// semaphore+WaitGroup fan-out in ngram.go) never leaves a goroutine
// running past the test that spawned it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestComputeNGramsDiscardsShortTokensAndStripsPunctuation(t *testing.T) {
	grams := computeNGrams("0001250", "Seizure's", []string{"Fit (epileptic) a"})

	assert.Contains(t, grams, "sei")
	assert.Contains(t, grams, "seizures") // apostrophe stripped, full token kept
	assert.Contains(t, grams, "epi")
	assert.Contains(t, grams, "fit")     // length-3 tokens are kept
	assert.NotContains(t, grams, "a")    // length-1 token discarded
}

func TestNGramsForTokenRespectsLengthBounds(t *testing.T) {
	grams := nGramsForToken("ab")
	assert.Empty(t, grams, "tokens under length 3 produce no n-grams")

	grams = nGramsForToken("abcd")
	assert.Contains(t, grams, "abc")
	assert.Contains(t, grams, "bcd")
	assert.Contains(t, grams, "abcd")
}

func TestSearchTextPreservesOrderStripsPunctuation(t *testing.T) {
	text := computeSearchText("0001250", "Seizure (generalized)", nil)
	assert.Equal(t, "0001250seizuregeneralized", text)
}

func TestSQLiteStoreAutoCompleteOrdering(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", 2)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	terms := []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "0001250", Label: "Seizure", Status: model.StatusActive},
		{Prefix: model.PrefixHPO, ConceptID: "0002011", Label: "Focal seizure", Status: model.StatusActive},
		{Prefix: model.PrefixHPO, ConceptID: "0007359", Label: "Focal-onset seizure", Status: model.StatusActive},
	}
	require.NoError(t, store.SaveTerms(ctx, terms))

	iter, err := store.AutoCompleteIter(ctx, model.PrefixHPO, "seizure", 5)
	require.NoError(t, err)
	defer iter.Close()

	var ids []string
	for {
		c, ok, err := iter.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, c.ConceptID)
	}

	require.NotEmpty(t, ids)
	assert.Equal(t, "0001250", ids[0], "exact substring match with shortest label should rank first")
}

func TestSQLiteStoreCountAndDelete(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", 2)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveTerms(ctx, []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "1", Label: "foo bar", Status: model.StatusActive},
	}))

	count, err := store.CountTerms(ctx, model.PrefixHPO)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.DeleteAllForLabel(ctx, model.PrefixHPO))
	count, err = store.CountTerms(ctx, model.PrefixHPO)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
