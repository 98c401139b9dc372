package main

import (
	"github.com/spf13/cobra"

	"bioterms/internal/model"
	"bioterms/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "local smoke-test entry points over the auto-complete/expand/similar/translate query surface",
}

func queryEngine(cmd *cobra.Command) (*query.Engine, func(), error) {
	orch, closeFn, err := bootstrap(cmd)
	if err != nil {
		return nil, nil, err
	}
	stores := orch.Stores()
	return &query.Engine{Document: stores.Document, Graph: stores.Graph, MinQueryLength: cfg.AutoCompleteMinLength}, closeFn, nil
}

var (
	queryLimit     int
	queryDepth     int
	queryThreshold float64
)

var queryAutocompleteCmd = &cobra.Command{
	Use:   "autocomplete <prefix> <query>",
	Short: "run the v2 structured auto-complete query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := queryEngine(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		results, err := eng.AutoCompleteV2(cmd.Context(), model.Prefix(args[0]), args[1], queryLimit)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var queryExpandCmd = &cobra.Command{
	Use:   "expand <prefix> <termId...>",
	Short: "run the v1 descendant expansion query",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := queryEngine(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		results, err := eng.ExpandV1(cmd.Context(), model.Prefix(args[0]), args[1:], queryDepth)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var querySimilarCmd = &cobra.Command{
	Use:   "similar <prefix> <termId...>",
	Short: "run the v1 similarity query",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := queryEngine(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		results, err := eng.SimilarV1(cmd.Context(), model.Prefix(args[0]), args[1:], queryThreshold, queryLimit)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var queryTranslateConstraints []string

var queryTranslateCmd = &cobra.Command{
	Use:   "translate <prefix> <termId...> --constraint <constraintPrefix:constraintId>...",
	Short: "run the v1 translation query",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := queryEngine(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		constraints := make(map[model.Prefix][]string)
		for _, ref := range queryTranslateConstraints {
			p, id, err := query.ParseConstraintRef(ref)
			if err != nil {
				return err
			}
			constraints[p] = append(constraints[p], id)
		}

		results, err := eng.TranslateV1(cmd.Context(), args[1:], model.Prefix(args[0]), constraints, queryThreshold)
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

func init() {
	queryAutocompleteCmd.Flags().IntVar(&queryLimit, "limit", 10, "maximum results")
	queryExpandCmd.Flags().IntVar(&queryDepth, "depth", 0, "maximum descendant depth (0 = unbounded)")
	querySimilarCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "minimum similarity score")
	querySimilarCmd.Flags().IntVar(&queryLimit, "limit", 10, "maximum neighbors per target prefix")
	queryTranslateCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "minimum similarity score")
	queryTranslateCmd.Flags().StringSliceVar(&queryTranslateConstraints, "constraint", nil, "constraint concept in prefix:conceptId form, repeatable")

	queryCmd.AddCommand(queryAutocompleteCmd, queryExpandCmd, querySimilarCmd, queryTranslateCmd)
}
