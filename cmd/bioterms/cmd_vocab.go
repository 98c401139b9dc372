package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"bioterms/internal/model"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "manage vocabulary ingestion (download, load, embed, delete, status)",
}

var vocabRedownload bool
var vocabDropExisting bool

var vocabDownloadCmd = &cobra.Command{
	Use:   "download <prefix>",
	Short: "download a vocabulary's source files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return orch.DownloadVocabulary(cmd.Context(), model.Prefix(args[0]), vocabRedownload)
	},
}

var vocabLoadCmd = &cobra.Command{
	Use:   "load <prefix>",
	Short: "parse and bulk-load a vocabulary into the document and graph stores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return orch.LoadVocabulary(cmd.Context(), model.Prefix(args[0]), vocabDropExisting)
	},
}

var vocabEmbedCmd = &cobra.Command{
	Use:   "embed <prefix>",
	Short: "embed every loaded concept and record its vectorId",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return orch.EmbedVocabulary(cmd.Context(), model.Prefix(args[0]))
	},
}

var vocabDeleteCmd = &cobra.Command{
	Use:   "delete <prefix>",
	Short: "delete a vocabulary from every store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return orch.DeleteVocabulary(cmd.Context(), model.Prefix(args[0]))
	},
}

var vocabStatusCmd = &cobra.Command{
	Use:   "status <prefix>",
	Short: "show a vocabulary's ingest state and counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, closeFn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		status, err := orch.VocabularyStatus(cmd.Context(), model.Prefix(args[0]))
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

func init() {
	vocabDownloadCmd.Flags().BoolVar(&vocabRedownload, "redownload", false, "redownload even if files are already present")
	vocabLoadCmd.Flags().BoolVar(&vocabDropExisting, "drop-existing", false, "delete existing data for this prefix before loading")

	vocabCmd.AddCommand(vocabDownloadCmd, vocabLoadCmd, vocabEmbedCmd, vocabDeleteCmd, vocabStatusCmd)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
