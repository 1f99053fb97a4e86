package analyze

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/integrate"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Classification is the outcome of one rule match.
type Classification struct {
	Kind   model.NodeKind
	Depth  int
	EqKind model.EquationKind
}

// PageContext carries the document and page facts rules match against.
type PageContext struct {
	PageWidth  float64
	PageHeight float64
	// BodySize is the modal body font size across the document.
	BodySize float64
	// InReferences is set once a References/Bibliography heading has
	// been seen anywhere before this item.
	InReferences bool

	cfg Config
}

// Rule classifies one run item. Rules run in a fixed order and the
// first match wins; an item no rule claims defaults to Paragraph.
type Rule interface {
	Name() string
	Match(pc *PageContext, it integrate.Item) (Classification, bool)
}

// defaultRules returns the rule chain in evaluation order.
func defaultRules() []Rule {
	return []Rule{
		equationBlockRule{},
		equationInlineRule{},
		footnoteRule{},
		referenceRule{},
		citationRule{},
		listItemRule{},
		headingRule{},
	}
}

// mathSymbols are the characters counted toward equation symbol
// density.
const mathSymbols = "=+−×÷∑∏∫√≈≠≤≥±∂∇∞αβγδεθλμπσφω^_/\\{}|<>"

// symbolDensity returns the fraction of non-space characters that are
// math symbols or digits adjacent to operators.
func symbolDensity(text string) float64 {
	total, hits := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if strings.ContainsRune(mathSymbols, r) {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// equationBlockRule claims short, symbol-dense, centered runs as
// display equations.
type equationBlockRule struct{}

func (equationBlockRule) Name() string { return "equation-block" }

func (equationBlockRule) Match(pc *PageContext, it integrate.Item) (Classification, bool) {
	run := it.Run
	text := strings.TrimSpace(run.Text)
	if len([]rune(text)) == 0 || len([]rune(text)) > pc.cfg.EquationMaxLen {
		return Classification{}, false
	}
	if symbolDensity(text) < pc.cfg.EquationSymbolDensity {
		return Classification{}, false
	}
	center := run.BBox.CenterX()
	if pc.PageWidth > 0 {
		offset := center - pc.PageWidth/2
		if offset < 0 {
			offset = -offset
		}
		if offset > pc.PageWidth*0.15 {
			return Classification{}, false
		}
	}
	return Classification{Kind: model.KindEquation, EqKind: model.EqBlock}, true
}

var inlineEqRe = regexp.MustCompile(`^\$[^$]+\$$|^\\\(.*\\\)$`)

// equationInlineRule claims runs that are entirely a delimited formula.
type equationInlineRule struct{}

func (equationInlineRule) Name() string { return "equation-inline" }

func (equationInlineRule) Match(pc *PageContext, it integrate.Item) (Classification, bool) {
	if !inlineEqRe.MatchString(strings.TrimSpace(it.Run.Text)) {
		return Classification{}, false
	}
	return Classification{Kind: model.KindEquation, EqKind: model.EqInline}, true
}

var footnoteMarkerRe = regexp.MustCompile(`^(\d{1,3}[.)]?\s+\S|[*\x{2020}\x{2021}]\s*\S)`)

// footnoteRule claims runs in the bottom band of the page, or small
// runs opening with a footnote marker.
type footnoteRule struct{}

func (footnoteRule) Name() string { return "footnote" }

func (footnoteRule) Match(pc *PageContext, it integrate.Item) (Classification, bool) {
	run := it.Run
	if pc.PageHeight > 0 && run.BBox.Y >= pc.PageHeight*(1-pc.cfg.FootnoteBandRatio) {
		return Classification{Kind: model.KindFootnote}, true
	}
	if footnoteMarkerRe.MatchString(run.Text) &&
		pc.BodySize > 0 && run.Font.Size > 0 && run.Font.Size < pc.BodySize*0.9 {
		return Classification{Kind: model.KindFootnote}, true
	}
	return Classification{}, false
}

// referenceRule claims every body run after the References heading.
type referenceRule struct{}

func (referenceRule) Name() string { return "reference" }

func (referenceRule) Match(pc *PageContext, it integrate.Item) (Classification, bool) {
	if !pc.InReferences {
		return Classification{}, false
	}
	// Headings still win within the reference section.
	if cls, ok := (headingRule{}).Match(pc, it); ok {
		return cls, true
	}
	return Classification{Kind: model.KindReference}, true
}

var (
	bracketCiteRe    = regexp.MustCompile(`^\[\d+(\s*[,\x{2013}-]\s*\d+)*\]$`)
	authorYearCiteRe = regexp.MustCompile(`^\([A-Z][\pL.\s&-]+(et al\.)?,?\s*(19|20)\d{2}[a-z]?\)$`)
)

// citationRule claims short standalone citation markers.
type citationRule struct{}

func (citationRule) Name() string { return "citation" }

func (citationRule) Match(pc *PageContext, it integrate.Item) (Classification, bool) {
	text := strings.TrimSpace(it.Run.Text)
	if len(text) > 60 {
		return Classification{}, false
	}
	if bracketCiteRe.MatchString(text) || authorYearCiteRe.MatchString(text) {
		return Classification{Kind: model.KindCitation}, true
	}
	return Classification{}, false
}

var (
	bulletRe    = regexp.MustCompile(`^[\x{2022}\x{25e6}\x{25aa}\x{2013}*-]\s+\S`)
	numberingRe = regexp.MustCompile(`^(\d{1,3}[.)]|[a-z][.)]|\([ivxlc]+\)|\([a-z]\)|\(\d{1,3}\))\s+\S`)
)

// listItemRule claims bulleted or numbered lines, with depth derived
// from the left indent.
type listItemRule struct{}

func (listItemRule) Name() string { return "list-item" }

func (listItemRule) Match(pc *PageContext, it integrate.Item) (Classification, bool) {
	text := it.Run.Text
	if !bulletRe.MatchString(text) && !numberingRe.MatchString(text) {
		return Classification{}, false
	}
	return Classification{Kind: model.KindListItem, Depth: indentDepth(it.Run.BBox.X)}, true
}

// indentDepth buckets the left edge into nesting depths.
func indentDepth(x float64) int {
	switch {
	case x < 50:
		return 1
	case x < 100:
		return 2
	case x < 150:
		return 3
	default:
		return 4
	}
}

// headingRule claims runs set visibly apart from body text: larger,
// bold, or all-caps, provided the text is short enough to be a title.
type headingRule struct{}

func (headingRule) Name() string { return "heading" }

func (headingRule) Match(pc *PageContext, it integrate.Item) (Classification, bool) {
	run := it.Run
	text := strings.TrimSpace(run.Text)
	if !headingCandidate(pc, run) {
		return Classification{}, false
	}
	if !headingValid(text) {
		return Classification{}, false
	}
	return Classification{Kind: model.KindHeading}, true
}

func headingCandidate(pc *PageContext, run *model.UnifiedRun) bool {
	if pc.BodySize > 0 && run.Font.Size >= pc.BodySize*pc.cfg.HeadingSizeRatio {
		return true
	}
	if run.Font.Bold {
		return true
	}
	return isAllCaps(run.Text)
}

// headingValid rejects candidates that read like body text: too long,
// too many words, or ending in a period (all-caps lines excepted).
func headingValid(text string) bool {
	if text == "" || len([]rune(text)) > 100 {
		return false
	}
	if len(strings.Fields(text)) > 10 {
		return false
	}
	if strings.HasSuffix(text, ".") && !isAllCaps(text) {
		return false
	}
	return true
}

// isAllCaps reports whether the text has letters and none lowercase.
func isAllCaps(text string) bool {
	hasLetter := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// referencesHeadingRe matches the headings that flip the analyzer into
// reference mode.
var referencesHeadingRe = regexp.MustCompile(`(?i)^(references|bibliography|works cited)\s*$`)
