package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/compile"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/config"
)

var (
	compileDocker bool
	compileLocal  bool
	compileImage  string
	compileBinary string
)

var compileCmd = &cobra.Command{
	Use:   "compile <document.typ>",
	Short: "Compile-validate a Typst document",
	Long: `Compile-validate a Typst document with the typst compiler.

By default a local typst binary is preferred, falling back to a Docker
container. Compiler diagnostics are printed on failure.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.CompileConfig{Mode: "auto", Image: compileImage, Binary: compileBinary}
		if mgr, err := loadConfig(); err == nil {
			cfg = mgr.Get().Compile
			if compileImage != "" {
				cfg.Image = compileImage
			}
			if compileBinary != "" {
				cfg.Binary = compileBinary
			}
		}
		switch {
		case compileDocker && compileLocal:
			return fmt.Errorf("--docker and --local are mutually exclusive")
		case compileDocker:
			cfg.Mode = "docker"
		case compileLocal:
			cfg.Mode = "local"
		}

		compiler, err := compile.Select(cmd.Context(), cfg, slog.Default())
		if err != nil {
			return err
		}
		if err := compiler.Check(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s compiles (%s)\n", args[0], compiler.Name())
		return nil
	},
}

func init() {
	compileCmd.Flags().BoolVar(&compileDocker, "docker", false, "Compile in a Docker container")
	compileCmd.Flags().BoolVar(&compileLocal, "local", false, "Compile with the local typst binary")
	compileCmd.Flags().StringVar(&compileImage, "image", "", "Compiler image (default: "+compile.DefaultImage+")")
	compileCmd.Flags().StringVar(&compileBinary, "binary", "", "Local typst binary (default: typst)")

	rootCmd.AddCommand(compileCmd)
}
