package main

import (
	"github.com/spf13/cobra"

	"resume-screener/internal/bootstrap"
	"resume-screener/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Print the text extracted from each file and archive member",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

var extractOutFile string

func init() {
	extractCmd.Flags().StringVarP(&extractOutFile, "out", "o", "", "Write items to this file instead of stdout")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	uploads, err := readUploads(args)
	if err != nil {
		return err
	}
	analyzer, err := bootstrap.BuildAnalyzer(cfg)
	if err != nil {
		return err
	}
	items, err := analyzer.Extract(cmd.Context(), uploads, nil)
	if err != nil {
		return err
	}
	if items == nil {
		items = []extract.Item{}
	}
	return writeJSON(extractOutFile, cmd.OutOrStdout(), map[string]any{
		"items": items,
		"meta":  extract.Summarize(items),
	})
}
