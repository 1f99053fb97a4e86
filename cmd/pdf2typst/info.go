package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/pipeline"
)

var infoCmd = &cobra.Command{
	Use:   "info <input.pdf>",
	Short: "Show a PDF's structure without converting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, _ := pipelineOptions()
		pl := pipeline.New(opts, nil, slog.Default())
		info, err := pl.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return api.Output(info)
	},
}

var previewPages int

var previewCmd = &cobra.Command{
	Use:   "preview <input.pdf>",
	Short: "Print the Typst markup for the first pages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, _ := pipelineOptions()
		pl := pipeline.New(opts, nil, slog.Default())
		res, err := pl.Preview(cmd.Context(), args[0], previewPages)
		if err != nil {
			return err
		}
		cmd.Println(res.Markup)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVar(&previewPages, "pages", 3, "Pages to preview")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(previewCmd)
}
