package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioterms/internal/model"
)

func TestDedupRF2ByLatestEffectiveTimeKeepsMostRecentRow(t *testing.T) {
	rows := []rf2Row{
		{ID: "1", EffectiveTime: "20180101", Active: "1", Fields: []string{"old"}},
		{ID: "1", EffectiveTime: "20230601", Active: "0", Fields: []string{"new"}},
		{ID: "2", EffectiveTime: "20200101", Active: "1", Fields: []string{"only"}},
	}
	out := dedupRF2ByLatestEffectiveTime(rows)
	require.Len(t, out, 2)

	byID := make(map[string]rf2Row)
	for _, r := range out {
		byID[r.ID] = r
	}
	assert.Equal(t, "20230601", byID["1"].EffectiveTime)
	assert.Equal(t, "0", byID["1"].Active, "dedup must keep the latest row's own Active flag")
}

func TestParseGTFAttributesExtractsKnownKeys(t *testing.T) {
	raw := `gene_id "ENSG00000139618"; gene_name "BRCA2"; transcript_id "ENST00000380152";`
	attrs := parseGTFAttributes(raw)
	assert.Equal(t, "ENSG00000139618", attrs["gene_id"])
	assert.Equal(t, "BRCA2", attrs["gene_name"])
	assert.Equal(t, "ENST00000380152", attrs["transcript_id"])
}

func TestResolveReplacedByCollapsesChainToFinalSuccessor(t *testing.T) {
	rels := []model.InternalRelationship{
		{Prefix: model.PrefixHPO, FromID: "A", ToID: "B", Label: model.RelationReplacedBy},
		{Prefix: model.PrefixHPO, FromID: "B", ToID: "C", Label: model.RelationReplacedBy},
		{Prefix: model.PrefixHPO, FromID: "X", ToID: "Y", Label: model.RelationIsA},
	}
	out := resolveReplacedBy(rels)

	var replacedFromA, isA bool
	for _, r := range out {
		if r.Label == model.RelationReplacedBy && r.FromID == "A" {
			assert.Equal(t, "C", r.ToID, "A must resolve to the final successor C, not the intermediate B")
			replacedFromA = true
		}
		if r.Label == model.RelationIsA {
			isA = true
		}
	}
	assert.True(t, replacedFromA)
	assert.True(t, isA, "non-REPLACED_BY relationships must pass through untouched")
}

func TestIRILastSegmentHandlesFragmentAndPath(t *testing.T) {
	assert.Equal(t, "HP_0001250", iriLastSegment("http://purl.obolibrary.org/obo/HP_0001250"))
	assert.Equal(t, "Thing", iriLastSegment("http://www.w3.org/2002/07/owl#Thing"))
}

func TestParseOWLClassesExtractsSubClassOfAndDeprecated(t *testing.T) {
	dir := t.TempDir()
	owlPath := filepath.Join(dir, "test.owl")
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:owl="http://www.w3.org/2002/07/owl#">
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0000001">
    <rdfs:label xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">All</rdfs:label>
  </owl:Class>
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0001250">
    <rdfs:label xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">Seizure</rdfs:label>
    <rdfs:subClassOf xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#" rdf:resource="http://purl.obolibrary.org/obo/HP_0000001"/>
  </owl:Class>
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_9999999">
    <owl:deprecated>true</owl:deprecated>
  </owl:Class>
</rdf:RDF>`
	require.NoError(t, os.WriteFile(owlPath, []byte(doc), 0o644))

	classes, err := parseOWLClasses(owlPath)
	require.NoError(t, err)
	require.Len(t, classes, 3)

	byIRI := make(map[string]owlClass)
	for _, c := range classes {
		byIRI[c.IRI] = c
	}

	seizure := byIRI["http://purl.obolibrary.org/obo/HP_0001250"]
	require.Len(t, seizure.SubClassOf, 1)
	assert.Equal(t, "http://purl.obolibrary.org/obo/HP_0000001", seizure.SubClassOf[0])

	assert.True(t, byIRI["http://purl.obolibrary.org/obo/HP_9999999"].Deprecated)
}

func TestParseHPOBuildsConceptsAndIsAEdges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, string(model.PrefixHPO)), 0o755))
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:owl="http://www.w3.org/2002/07/owl#">
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0000001">
    <rdfs:label xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">All</rdfs:label>
  </owl:Class>
  <owl:Class rdf:about="http://purl.obolibrary.org/obo/HP_0001250">
    <rdfs:label xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">Seizure</rdfs:label>
    <rdfs:subClassOf xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#" rdf:resource="http://purl.obolibrary.org/obo/HP_0000001"/>
  </owl:Class>
</rdf:RDF>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(model.PrefixHPO), hpoOWLFileName), []byte(doc), 0o644))

	result, err := parseHPO(dir)
	require.NoError(t, err)
	require.Len(t, result.Concepts, 2)
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, "HP_0001250", result.Relationships[0].FromID)
	assert.Equal(t, "HP_0000001", result.Relationships[0].ToID)
	assert.Equal(t, model.RelationIsA, result.Relationships[0].Label)
}

func TestParseORDOEmitsBFOPartOfRestrictionsAsIsA(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, string(model.PrefixORDO)), 0o755))
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:owl="http://www.w3.org/2002/07/owl#">
  <owl:Class rdf:about="http://www.orpha.net/ORDO/Orphanet_100">
    <rdfs:label xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">Disorder group</rdfs:label>
  </owl:Class>
  <owl:Class rdf:about="http://www.orpha.net/ORDO/Orphanet_101">
    <rdfs:label xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">Clinical subtype</rdfs:label>
    <rdfs:subClassOf xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#">
      <owl:Restriction>
        <owl:onProperty rdf:resource="http://purl.obolibrary.org/obo/BFO_0000050"/>
        <owl:someValuesFrom rdf:resource="http://www.orpha.net/ORDO/Orphanet_100"/>
      </owl:Restriction>
    </rdfs:subClassOf>
  </owl:Class>
</rdf:RDF>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(model.PrefixORDO), ordoOWLFileName), []byte(doc), 0o644))

	result, err := parseORDO(dir)
	require.NoError(t, err)
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, "Orphanet_101", result.Relationships[0].FromID)
	assert.Equal(t, "Orphanet_100", result.Relationships[0].ToID)
	assert.Equal(t, model.RelationIsA, result.Relationships[0].Label,
		"BFO_0000050 restriction must be wired as IS_A so ExpandTermsIter's backward IS_A walk reaches clinical subtypes")
}

func TestParseNCITMarksObsoleteConceptsDeprecated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, string(model.PrefixNCIT)), 0o755))
	lines := []string{
		"C1\tiri1\tC2|C3\tsyn1|syn2\tdef\tDisplay Name\tActive_Concept\tsemtype",
		"C4\tiri2\t\t\t\tOld Name\tObsolete_Concept\tsemtype",
	}
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(model.PrefixNCIT), ncitFlatFileName), []byte(content), 0o644))

	result, err := parseNCIT(dir)
	require.NoError(t, err)
	require.Len(t, result.Concepts, 2)

	byID := make(map[string]*model.Concept)
	for _, c := range result.Concepts {
		byID[c.ConceptID] = c
	}
	assert.Equal(t, model.StatusActive, byID["C1"].Status)
	assert.Equal(t, model.StatusDeprecated, byID["C4"].Status)
	assert.Len(t, result.Relationships, 2)
}

func TestParseSNOMEDDedupsAndExtractsIsAAndReplacedBy(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, string(model.PrefixSNOMED))
	require.NoError(t, os.MkdirAll(base, 0o755))

	concepts := "id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId\n" +
		"100\t20200101\t1\tmod\t900000000000073002\n" +
		"200\t20200101\t1\tmod\t900000000000074008\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, snomedConceptFile), []byte(concepts), 0o644))

	descriptions := "id\teffectiveTime\tactive\tmoduleId\tconceptId\tlanguageCode\ttypeId\tterm\tcaseSignificanceId\n" +
		"1\t20200101\t1\tmod\t100\ten\t900000000000003001\tDisease\tcase1\n" +
		"2\t20200101\t1\tmod\t200\ten\t900000000000003001\tFinding\tcase1\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, snomedDescriptionFile), []byte(descriptions), 0o644))

	relationships := "id\teffectiveTime\tactive\tmoduleId\tsourceId\tdestinationId\trelationshipGroup\ttypeId\tcharacteristicTypeId\tmodifierId\n" +
		"10\t20200101\t1\tmod\t100\t200\t0\t116680003\tchar\tmod2\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, snomedRelationshipFile), []byte(relationships), 0o644))

	result, err := parseSNOMED(dir)
	require.NoError(t, err)
	require.Len(t, result.Concepts, 2)
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, model.RelationIsA, result.Relationships[0].Label)
	assert.Equal(t, "100", result.Relationships[0].FromID)
	assert.Equal(t, "200", result.Relationships[0].ToID)

	byID := make(map[string]*model.Concept)
	for _, c := range result.Concepts {
		byID[c.ConceptID] = c
	}
	require.NotNil(t, byID["100"].Extra)
	assert.True(t, *byID["100"].Extra.FullyDefined)
	assert.False(t, *byID["200"].Extra.FullyDefined)
}

func TestParseHGNCEmitsAliasAnnotationsAndSymbolConcepts(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, string(model.PrefixHGNC))
	require.NoError(t, os.MkdirAll(base, 0o755))

	content := "hgnc_id\tsymbol\tname\talias_symbol\tstatus\n" +
		"HGNC:1100\tBRCA2\tBRCA2, DNA repair associated\tFANCD1|FACD\tApproved\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, hgncFileName), []byte(content), 0o644))

	result, err := parseHGNC(dir)
	require.NoError(t, err)

	var hgncConcept, symbolConcept bool
	for _, c := range result.Concepts {
		if c.Prefix == model.PrefixHGNC && c.ConceptID == "1100" {
			hgncConcept = true
		}
		if c.Prefix == model.PrefixHGNCSymbol && c.ConceptID == "BRCA2" {
			symbolConcept = true
		}
	}
	assert.True(t, hgncConcept)
	assert.True(t, symbolConcept)

	require.Len(t, result.Annotations, 2)
	assert.Equal(t, model.AnnotationHasSymbol, result.Annotations[0].AnnotationType)
}

func TestRegistryHasAllNineVocabularies(t *testing.T) {
	assert.Len(t, Registry, 9)
	for _, p := range []model.Prefix{
		model.PrefixHPO, model.PrefixORDO, model.PrefixSNOMED, model.PrefixNCIT,
		model.PrefixOMIM, model.PrefixHGNC, model.PrefixCTV3, model.PrefixEnsembl,
		model.PrefixReactome,
	} {
		_, ok := Registry[p]
		assert.True(t, ok, "missing registry entry for %s", p)
	}
}
