package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/config"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/home"
	"github.com/luoqiao6/pdf-to-typst-mcp/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "pdf2typst",
	Short: "Convert PDF documents to Typst markup",
	Long: `pdf2typst converts PDF documents into clean, compilable Typst markup.

The pipeline includes:
  - Dual-backend text extraction with position reconciliation
  - Table and image detection with asset extraction
  - Rule-based structural analysis (headings, lists, columns, equations)
  - Deterministic Typst rendering with optional compile validation
  - Interactive page-by-page refinement over MCP or HTTP`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pdf2typst/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pdf2typst home directory (default: ~/.pdf2typst)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "table", "output format: table, yaml, or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, or error",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		api.SetOutputFormat(outputFormat)
		return setupLogging(os.Stderr)
	}

	rootCmd.AddCommand(versionCmd)
}

// setupLogging installs the default slog handler. The --log-level flag
// wins over the configured level.
func setupLogging(w *os.File) error {
	level := logLevel
	if level == "" {
		if mgr, err := loadConfig(); err == nil {
			level = mgr.Get().LogLevel
		}
	}

	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "", "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})))
	return nil
}

// loadConfig builds the config manager, preferring --config, then the
// home directory's config file when it exists.
func loadConfig() (*config.Manager, error) {
	path := cfgFile
	if path == "" {
		if h, err := home.New(homeDir); err == nil && h.ConfigExists() {
			path = h.ConfigPath()
		}
	}
	return config.NewManager(path)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pdf2typst %s\n", version.GitRelease)
		fmt.Printf("  Go:     %s\n", version.GoInfo)
		fmt.Printf("  Commit: %s\n", version.GitCommit)
		fmt.Printf("  Date:   %s\n", version.GitCommitDate)
	},
}
