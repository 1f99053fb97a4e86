package interpreter

import (
	"log/slog"
	"strings"
)

// Assembler stitches per-page fragments into one document, falling back
// to the core renderer's markup for pages the interpreter never
// produced.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger.With("component", "assemble")}
}

// Assemble joins pages 1..pageCount in order. prelude goes first;
// fragments win over fallback markup page by page.
func (a *Assembler) Assemble(prelude string, pageCount int, fragments, fallback map[int]string) string {
	var sb strings.Builder
	if prelude != "" {
		sb.WriteString(strings.TrimRight(prelude, "\n"))
		sb.WriteString("\n\n")
	}

	fromInterpreter := 0
	wrote := 0
	for page := 1; page <= pageCount; page++ {
		body, ok := fragments[page]
		if ok && strings.TrimSpace(body) != "" {
			fromInterpreter++
		} else {
			body = fallback[page]
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		if wrote > 0 {
			sb.WriteString("#pagebreak()\n\n")
		}
		sb.WriteString(strings.TrimRight(body, "\n"))
		sb.WriteString("\n\n")
		wrote++
	}

	a.logger.Debug("document assembled",
		"pages", pageCount,
		"interpreted", fromInterpreter,
		"fallback", wrote-fromInterpreter)
	return sb.String()
}
