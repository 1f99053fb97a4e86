package main

import (
	"time"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/config"
)

// resultRounding trims sub-millisecond noise from printed durations.
const resultRounding = time.Millisecond

// configSnapshot carries the config sections commands need after the
// pipeline options are resolved.
type configSnapshot struct {
	Compile config.CompileConfig
}
