package pipeline

import (
	"runtime"
	"time"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/config"
)

// Options tunes one conversion run.
type Options struct {
	SkipImages       bool
	SkipTables       bool
	MaxFileSize      int64
	PageTimeout      time.Duration
	HeadingSizeRatio float64
	ColumnGapMin     float64
	SuppressOverlap  float64
	StrictMode       bool
	Workers          int
}

// DefaultOptions returns the built-in pipeline tuning.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:      100 << 20,
		PageTimeout:      30 * time.Second,
		HeadingSizeRatio: 1.2,
		ColumnGapMin:     30,
		SuppressOverlap:  0.95,
		Workers:          runtime.NumCPU(),
	}
}

// FromConfig maps the loaded configuration onto pipeline options,
// filling zero values from the defaults.
func FromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	p := cfg.Pipeline
	opts.SkipImages = p.SkipImages
	opts.SkipTables = p.SkipTables
	opts.StrictMode = p.StrictMode
	if p.MaxFileSize > 0 {
		opts.MaxFileSize = p.MaxFileSize
	}
	if p.PageTimeout > 0 {
		opts.PageTimeout = p.PageTimeout
	}
	if p.HeadingSizeRatio > 0 {
		opts.HeadingSizeRatio = p.HeadingSizeRatio
	}
	if p.ColumnGapMin > 0 {
		opts.ColumnGapMin = p.ColumnGapMin
	}
	if p.SuppressOverlap > 0 {
		opts.SuppressOverlap = p.SuppressOverlap
	}
	if p.Workers > 0 {
		opts.Workers = p.Workers
	}
	return opts
}

// normalized returns opts with zero values replaced by defaults.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = def.MaxFileSize
	}
	if o.PageTimeout <= 0 {
		o.PageTimeout = def.PageTimeout
	}
	if o.HeadingSizeRatio <= 0 {
		o.HeadingSizeRatio = def.HeadingSizeRatio
	}
	if o.ColumnGapMin <= 0 {
		o.ColumnGapMin = def.ColumnGapMin
	}
	if o.SuppressOverlap <= 0 {
		o.SuppressOverlap = def.SuppressOverlap
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	return o
}
