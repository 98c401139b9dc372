package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioterms/internal/model"
)

func TestMemoryStoreSetGetExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	val, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(val))

	time.Sleep(20 * time.Millisecond)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries must read as a miss")
}

func TestMemoryStorePurgeClearsEverything(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Hour))

	require.NoError(t, s.Purge(ctx))

	_, ok, _ := s.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "b")
	assert.False(t, ok)
}

func TestGetJSONDeletesInvalidPayloadOnRead(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "bad", []byte("not json"), time.Hour))

	var dest map[string]int
	ok, err := GetJSON(ctx, s, "bad", &dest)
	require.NoError(t, err)
	assert.False(t, ok)

	_, stillThere, _ := s.Get(ctx, "bad")
	assert.False(t, stillThere, "invalid payload must be deleted on read")
}

func TestSetJSONRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	type status struct {
		State string `json:"state"`
	}
	require.NoError(t, SetJSON(ctx, s, VocabStatusKey(model.PrefixHPO), status{State: "LOADED"}, time.Hour))

	var got status
	ok, err := GetJSON(ctx, s, VocabStatusKey(model.PrefixHPO), &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "LOADED", got.State)
}

func TestCacheKeyHelpers(t *testing.T) {
	assert.Equal(t, "vocab_status:HPO", VocabStatusKey(model.PrefixHPO))
	assert.Equal(t, "anno_status:HPO:HGNC_SYMBOL", AnnotationStatusKey(model.PrefixHPO, model.PrefixHGNCSymbol))
	assert.Equal(t, "sim_status:HPO", SimilarityStatusKey(model.PrefixHPO))
}
