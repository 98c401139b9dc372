package main

import (
	"github.com/spf13/cobra"

	"bioterms/internal/model"
)

var annotationCmd = &cobra.Command{
	Use:   "annotation",
	Short: "manage cross-vocabulary annotation pairs (download, load, delete, status)",
}

var annotationRedownload bool
var annotationOverwrite bool

var annotationDownloadCmd = &cobra.Command{
	Use:   "download <prefixA> <prefixB>",
	Short: "download an annotation pair's source files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return orch.DownloadAnnotation(cmd.Context(), model.Prefix(args[0]), model.Prefix(args[1]), annotationRedownload)
	},
}

var annotationLoadCmd = &cobra.Command{
	Use:   "load <prefixA> <prefixB>",
	Short: "parse and load an annotation pair (requires both vocabularies already loaded)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return orch.LoadAnnotation(cmd.Context(), model.Prefix(args[0]), model.Prefix(args[1]), annotationOverwrite)
	},
}

var annotationDeleteCmd = &cobra.Command{
	Use:   "delete <prefixA> <prefixB>",
	Short: "delete an annotation pair's edges",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return orch.DeleteAnnotation(cmd.Context(), model.Prefix(args[0]), model.Prefix(args[1]))
	},
}

var annotationStatusCmd = &cobra.Command{
	Use:   "status <prefixA> <prefixB>",
	Short: "show an annotation pair's load state and edge count",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		status, err := orch.AnnotationStatus(cmd.Context(), model.Prefix(args[0]), model.Prefix(args[1]))
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

func init() {
	annotationDownloadCmd.Flags().BoolVar(&annotationRedownload, "redownload", false, "redownload even if files are already present")
	annotationLoadCmd.Flags().BoolVar(&annotationOverwrite, "overwrite", false, "reload even if the pair is already loaded")

	annotationCmd.AddCommand(annotationDownloadCmd, annotationLoadCmd, annotationDeleteCmd, annotationStatusCmd)
}
