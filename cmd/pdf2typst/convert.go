package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/compile"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/pipeline"
)

var (
	convertNoImages  bool
	convertNoTables  bool
	convertOverwrite bool
	convertStrict    bool
	convertWorkers   int
	convertCheck     bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.pdf> [output.typ]",
	Short: "Convert a PDF to a Typst document",
	Long: `Convert a PDF to a Typst document.

The output path defaults to the input path with a .typ extension.
Extracted images are written to an assets/ directory next to the output.

Examples:
  pdf2typst convert paper.pdf
  pdf2typst convert paper.pdf out/paper.typ --strict --check
  pdf2typst convert scan.pdf --no-images --workers 2`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		output := defaultTypstPath(input)
		if len(args) == 2 {
			output = args[1]
		}
		if !convertOverwrite {
			if _, err := os.Stat(output); err == nil {
				return fmt.Errorf("%s already exists (use --overwrite)", output)
			}
		}

		opts, cfg := pipelineOptions()
		pl := pipeline.New(opts, nil, slog.Default())
		res, err := pl.Convert(cmd.Context(), input, output)
		if err != nil {
			return err
		}

		fmt.Printf("wrote %s (%d pages, %d assets, %s)\n",
			output, res.PageCount, res.AssetCount, res.Duration.Round(resultRounding))
		if len(res.FailedPages) > 0 {
			fmt.Printf("failed pages: %v\n", res.FailedPages)
		}

		if convertCheck {
			compiler, err := compile.Select(cmd.Context(), cfg.Compile, slog.Default())
			if err != nil {
				return fmt.Errorf("compile check: %w", err)
			}
			if err := compiler.Check(cmd.Context(), output); err != nil {
				return err
			}
			fmt.Printf("compile check passed (%s)\n", compiler.Name())
		}
		return nil
	},
}

var (
	batchPattern string
)

// BatchResult is one row of the batch summary.
type BatchResult struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Pages  int    `json:"pages,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchSummary is the batch command's output.
type BatchSummary struct {
	Results   []BatchResult `json:"results"`
	Converted int           `json:"converted"`
	Failed    int           `json:"failed"`
}

var _ api.Tabler = (*BatchSummary)(nil)

func (s *BatchSummary) TableHeaders() []string {
	return []string{"INPUT", "OUTPUT", "PAGES", "ERROR"}
}

func (s *BatchSummary) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		rows = append(rows, []string{r.Input, r.Output, fmt.Sprintf("%d", r.Pages), r.Error})
	}
	return rows
}

var batchCmd = &cobra.Command{
	Use:   "batch <input-dir> [output-dir]",
	Short: "Convert every PDF in a directory",
	Long: `Convert every PDF in a directory. Conversion continues past
individual failures and a summary is printed at the end.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputDir := args[0]
		outputDir := inputDir
		if len(args) == 2 {
			outputDir = args[1]
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return err
		}

		matches, err := filepath.Glob(filepath.Join(inputDir, batchPattern))
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", batchPattern, err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("no files match %s in %s", batchPattern, inputDir)
		}

		opts, _ := pipelineOptions()
		pl := pipeline.New(opts, nil, slog.Default())

		summary := BatchSummary{}
		for _, input := range matches {
			out := filepath.Join(outputDir, strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))+".typ")
			res, err := pl.Convert(cmd.Context(), input, out)
			if err != nil {
				summary.Results = append(summary.Results, BatchResult{Input: input, Error: err.Error()})
				summary.Failed++
				continue
			}
			summary.Results = append(summary.Results, BatchResult{Input: input, Output: out, Pages: res.PageCount})
			summary.Converted++
		}
		return api.Output(&summary)
	},
}

// pipelineOptions merges config with the convert flags.
func pipelineOptions() (pipeline.Options, *configSnapshot) {
	snap := &configSnapshot{}
	opts := pipeline.DefaultOptions()
	if mgr, err := loadConfig(); err == nil {
		cfg := mgr.Get()
		opts = pipeline.FromConfig(cfg)
		snap.Compile = cfg.Compile
	}
	if convertNoImages {
		opts.SkipImages = true
	}
	if convertNoTables {
		opts.SkipTables = true
	}
	if convertStrict {
		opts.StrictMode = true
	}
	if convertWorkers > 0 {
		opts.Workers = convertWorkers
	}
	return opts, snap
}

func defaultTypstPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".typ"
}

func init() {
	convertCmd.Flags().BoolVar(&convertNoImages, "no-images", false, "Skip image extraction")
	convertCmd.Flags().BoolVar(&convertNoTables, "no-tables", false, "Skip table detection")
	convertCmd.Flags().BoolVar(&convertOverwrite, "overwrite", false, "Overwrite an existing output file")
	convertCmd.Flags().BoolVar(&convertStrict, "strict", false, "Fail the document if any page fails")
	convertCmd.Flags().IntVar(&convertWorkers, "workers", 0, "Concurrent page workers (default: from config)")
	convertCmd.Flags().BoolVar(&convertCheck, "check", false, "Compile-validate the result with typst")

	batchCmd.Flags().StringVar(&batchPattern, "pattern", "*.pdf", "Glob pattern for input files")
	batchCmd.Flags().BoolVar(&convertNoImages, "no-images", false, "Skip image extraction")
	batchCmd.Flags().BoolVar(&convertNoTables, "no-tables", false, "Skip table detection")
	batchCmd.Flags().BoolVar(&convertStrict, "strict", false, "Fail a document if any page fails")
	batchCmd.Flags().IntVar(&convertWorkers, "workers", 0, "Concurrent page workers (default: from config)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
}
