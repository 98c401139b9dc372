package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bioterms/internal/config"
	"bioterms/internal/model"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := config.DefaultConfig()
	dir := t.TempDir()
	c.DataDir = dir
	c.DocumentStore.DSN = filepath.Join(dir, "document.db")
	c.GraphStore.DSN = filepath.Join(dir, "graph.db")
	c.VectorStore.DSN = filepath.Join(dir, "vector.db")
	return c
}

func TestBootstrapBuildsOrchestratorFromDefaultDrivers(t *testing.T) {
	logger = zap.NewNop()
	cfg = testConfig(t)

	cmd := newTestCommand()

	orch, closeFn, err := bootstrap(cmd)
	require.NoError(t, err)
	defer closeFn()

	status, err := orch.VocabularyStatus(cmd.Context(), model.PrefixHPO)
	require.NoError(t, err)
	require.Equal(t, model.PrefixHPO, status.Prefix)
	require.Equal(t, model.StateAbsent, status.State)
}

func TestVocabStatusCmdRunsAgainstSeededStore(t *testing.T) {
	logger = zap.NewNop()
	cfg = testConfig(t)

	seedCmd := newTestCommand()
	seedOrch, seedClose, err := bootstrap(seedCmd)
	require.NoError(t, err)
	require.NoError(t, seedOrch.Stores().Document.SaveTerms(seedCmd.Context(), []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "0001250", Label: "Seizure", Status: model.StatusActive},
	}))
	require.NoError(t, seedOrch.Stores().Graph.SaveVocabularyGraph(seedCmd.Context(), []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "0001250", Label: "Seizure", Status: model.StatusActive},
	}, nil))
	seedClose()

	queryCmd := newTestCommand()
	require.NoError(t, vocabStatusCmd.RunE(queryCmd, []string{"HPO"}))
}

func TestQueryAutocompleteCmdRunsAgainstSeededStore(t *testing.T) {
	logger = zap.NewNop()
	cfg = testConfig(t)
	queryLimit = 5

	seedCmd := newTestCommand()
	seedOrch, seedClose, err := bootstrap(seedCmd)
	require.NoError(t, err)
	require.NoError(t, seedOrch.Stores().Document.SaveTerms(seedCmd.Context(), []*model.Concept{
		{Prefix: model.PrefixHPO, ConceptID: "0001250", Label: "Seizure", Status: model.StatusActive},
	}))
	seedClose()

	runCmd := newTestCommand()
	require.NoError(t, queryAutocompleteCmd.RunE(runCmd, []string{"HPO", "seizure"}))
}
