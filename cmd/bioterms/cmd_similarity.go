package main

import (
	"github.com/spf13/cobra"

	"bioterms/internal/model"
	"bioterms/internal/similarity"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity",
	Short: "compute similarity matrices over an ontology DAG",
}

var (
	similarityCorpus    string
	similarityThreshold float64
	similarityWorkers   int
)

var similarityCalculateCmd = &cobra.Command{
	Use:   "calculate <method> <prefix>",
	Short: "calculate relevance or coannotation_vector similarity for a vocabulary",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		method := model.SimilarityMethod(args[0])
		prefix := model.Prefix(args[1])

		engine := &similarity.Engine{Graph: orch.Stores().Graph, Workers: similarityWorkers}
		return engine.Calculate(cmd.Context(), method, prefix, model.Prefix(similarityCorpus), similarityThreshold)
	},
}

func init() {
	similarityCalculateCmd.Flags().StringVar(&similarityCorpus, "corpus", "", "annotation corpus prefix (defaults to every prefix registered in an annotation pair with the target)")
	similarityCalculateCmd.Flags().Float64Var(&similarityThreshold, "threshold", 0, "minimum score to persist")
	similarityCalculateCmd.Flags().IntVar(&similarityWorkers, "workers", similarity.DefaultWorkers, "pair-worker pool size")

	similarityCmd.AddCommand(similarityCalculateCmd)
}
