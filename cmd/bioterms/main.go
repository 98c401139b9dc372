// Package main implements the bioterms CLI - local smoke-test entry
// points over the ingestion and query surface described in the
// specification. This is not a transport; it drives the same
// ingest.Orchestrator and query.Engine a future HTTP/GraphQL layer would
// wrap.
//
// File index:
//   - main.go              - entry point, rootCmd, global flags, bootstrap()
//   - cmd_vocab.go         - vocab download|load|embed|delete|status
//   - cmd_annotation.go    - annotation download|load|delete|status
//   - cmd_similarity.go    - similarity calculate
//   - cmd_query.go         - query autocomplete|expand|similar|translate
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bioterms/internal/config"
	"bioterms/internal/ingest"
	"bioterms/internal/logging"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bioterms",
	Short: "bioterms - biomedical terminology ingestion and query service",
	Long: `bioterms ingests public biomedical ontologies and vocabularies (HPO,
ORDO, SNOMED CT, NCIT, OMIM, HGNC, Ensembl, Reactome, CTV3) into a
document + graph + vector data plane, and serves auto-complete,
hierarchical expansion, similarity, and translation queries over it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.VerbosePrint = true
			cfg.Logging.DebugMode = true
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if err := logging.Initialize(cfg.DataDir, cfg.Logging.DebugMode, cfg.Logging.Level, cfg.Logging.Format == "json"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "bioterms.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(vocabCmd, annotationCmd, similarityCmd, queryCmd)
}

// bootstrap constructs the store adapters and an Orchestrator from the
// loaded config. Callers must invoke the returned close function once
// done, mirroring the teacher's PersistentPreRunE/PersistentPostRun
// construct/teardown split but scoped per-command since each store
// backend owns its own connection.
func bootstrap(cmd *cobra.Command) (*ingest.Orchestrator, func(), error) {
	stores, err := ingest.NewStores(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	orch := ingest.NewOrchestrator(cfg.DataDir, cfg.ProcessLimit, stores)
	closeFn := func() {
		_ = stores.Document.Close()
		_ = stores.Graph.Close()
		_ = stores.Vector.Close()
		_ = stores.Cache.Close()
	}
	return orch, closeFn, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
