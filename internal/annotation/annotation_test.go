package annotation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioterms/internal/model"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	a := PairKey(model.PrefixHPO, model.PrefixORDO)
	b := PairKey(model.PrefixORDO, model.PrefixHPO)
	assert.Equal(t, a, b)
	assert.Equal(t, "HPO_ORDO", a)
}

func TestRegistryHasEveryDeclaredPair(t *testing.T) {
	pairs := [][2]model.Prefix{
		{model.PrefixHGNCSymbol, model.PrefixHPO},
		{model.PrefixHPO, model.PrefixORDO},
		{model.PrefixSNOMED, model.PrefixORDO},
		{model.PrefixNCIT, model.PrefixHGNCSymbol},
		{model.PrefixOMIM, model.PrefixHGNCSymbol},
		{model.PrefixORDO, model.PrefixHGNCSymbol},
		{model.PrefixSNOMED, model.PrefixCTV3},
		{model.PrefixOMIM, model.PrefixORDO},
	}
	for _, p := range pairs {
		_, ok := Registry[PairKey(p[0], p[1])]
		assert.True(t, ok, "missing registry entry for %v", p)
	}
}

func TestParseGeneHPOMapsFrequencyCodes(t *testing.T) {
	dir := t.TempDir()
	annDir := filepath.Join(dir, "annotations")
	require.NoError(t, os.MkdirAll(annDir, 0o755))

	content := "gene_symbol\thpo_id\tfrequency\n" +
		"BRCA2\tHP:0001250\tHP:0040282\n" +
		"-\tHP:0000001\t-\n"
	require.NoError(t, os.WriteFile(filepath.Join(annDir, geneHPOFileName), []byte(content), 0o644))

	annotations, err := parseGeneHPO(dir)
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, "BRCA2", annotations[0].ConceptIDFrom)
	assert.Equal(t, "0001250", annotations[0].ConceptIDTo)
	assert.Equal(t, "F", annotations[0].Properties["frequency"])
}

func TestParseHPOORDOExtractsTripleFromClassName(t *testing.T) {
	dir := t.TempDir()
	annDir := filepath.Join(dir, "annotations")
	require.NoError(t, os.MkdirAll(annDir, 0o755))

	content := `<owl:Class rdf:about="http://example.org/HOOM#Orpha:166024_HP:0001250_FREQ:0040281"/>`
	require.NoError(t, os.WriteFile(filepath.Join(annDir, hoomFileName), []byte(content), 0o644))

	annotations, err := parseHPOORDO(dir)
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, "166024", annotations[0].ConceptIDFrom)
	assert.Equal(t, "0001250", annotations[0].ConceptIDTo)
	assert.Equal(t, "VF", annotations[0].Properties["frequency"])
}

func TestDedupRF2MapByLatestEffectiveTimeKeepsNewestRow(t *testing.T) {
	rows := []rf2MapRow{
		{ID: "1", EffectiveTime: "20190101", Active: "1", ReferencedComponentID: "100", MapTarget: "old"},
		{ID: "1", EffectiveTime: "20230101", Active: "1", ReferencedComponentID: "100", MapTarget: "new"},
	}
	out := dedupRF2MapByLatestEffectiveTime(rows)
	require.Len(t, out, 1)
	assert.Equal(t, "new", out[0].MapTarget)
}

func TestParseOMIMORDOFiltersZeroCountReferences(t *testing.T) {
	dir := t.TempDir()
	annDir := filepath.Join(dir, "annotations")
	require.NoError(t, os.MkdirAll(annDir, 0o755))

	content := `{
		"JDBOR": [{
			"DisorderList": [{
				"Disorder": [
					{
						"OrphaCode": "166024",
						"ExternalReferenceList": [
							{"count": "1", "ExternalReference": [{"Source": "OMIM", "Reference": "601419"}]},
							{"count": "0", "ExternalReference": [{"Source": "OMIM", "Reference": "999999"}]}
						]
					}
				]
			}]
		}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(annDir, omimORDOFileName), []byte(content), 0o644))

	annotations, err := parseOMIMORDO(dir)
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, "601419", annotations[0].ConceptIDTo)
}
