package config

import (
	"runtime"
	"time"
)

// Config is the full application configuration.
type Config struct {
	LogLevel    string            `mapstructure:"log_level" yaml:"log_level"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline"`
	Interpreter InterpreterConfig `mapstructure:"interpreter" yaml:"interpreter"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Compile     CompileConfig     `mapstructure:"compile" yaml:"compile"`
}

// PipelineConfig tunes the conversion pipeline.
type PipelineConfig struct {
	SkipImages       bool          `mapstructure:"skip_images" yaml:"skip_images"`
	SkipTables       bool          `mapstructure:"skip_tables" yaml:"skip_tables"`
	MaxFileSize      int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	PageTimeout      time.Duration `mapstructure:"page_timeout" yaml:"page_timeout"`
	HeadingSizeRatio float64       `mapstructure:"heading_size_ratio" yaml:"heading_size_ratio"`
	StrictMode       bool          `mapstructure:"strict_mode" yaml:"strict_mode"`
	Workers          int           `mapstructure:"workers" yaml:"workers"`
	ColumnGapMin     float64       `mapstructure:"column_gap_min" yaml:"column_gap_min"`
	SuppressOverlap  float64       `mapstructure:"suppress_overlap" yaml:"suppress_overlap"`
}

// InterpreterConfig configures the optional external layout
// interpreter. APIKey may use ${ENV_VAR} syntax.
type InterpreterConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Model       string `mapstructure:"model" yaml:"model"`
	APIKey      string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// CompileConfig configures Typst compile validation. Mode is one of
// auto, docker, local, off.
type CompileConfig struct {
	Mode   string `mapstructure:"mode" yaml:"mode"`
	Image  string `mapstructure:"image" yaml:"image"`
	Binary string `mapstructure:"binary" yaml:"binary"`
}

// maxFileSizeDefault caps input PDFs at 100 MiB.
const maxFileSizeDefault = 100 << 20

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Pipeline: PipelineConfig{
			SkipImages:       false,
			SkipTables:       false,
			MaxFileSize:      maxFileSizeDefault,
			PageTimeout:      30 * time.Second,
			HeadingSizeRatio: 1.2,
			StrictMode:       false,
			Workers:          runtime.NumCPU(),
			ColumnGapMin:     30,
			SuppressOverlap:  0.95,
		},
		Interpreter: InterpreterConfig{
			Enabled:     false,
			Model:       "gpt-4o-mini",
			APIKey:      "${OPENAI_API_KEY}",
			MaxAttempts: 3,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8177,
		},
		Compile: CompileConfig{
			Mode:  "auto",
			Image: "ghcr.io/typst/typst:latest",
		},
	}
}
