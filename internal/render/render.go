// Package render emits Typst markup from the document tree. Output is
// deterministic: the same tree always renders to the same bytes, and
// structural problems raise a fatal Error instead of silently
// truncating content.
package render

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/assets"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Error is a fatal rendering failure with enough position detail to
// find the offending node.
type Error struct {
	Page int
	Kind string
	Pos  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("render: %s at page %d (%s)", e.Kind, e.Page, e.Pos)
}

// mmPerPoint converts page points to millimeters for #set page.
const mmPerPoint = 0.352778

// defaultBodySize is used when the tree carries no sized runs.
const defaultBodySize = 11.0

// Renderer turns trees into Typst markup, registering image payloads
// in the asset store as it goes.
type Renderer struct {
	store  *assets.Store
	logger *slog.Logger
}

// New returns a Renderer writing image payloads to store.
func New(store *assets.Store, logger *slog.Logger) *Renderer {
	if store == nil {
		store = assets.NewStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{store: store, logger: logger.With("component", "render")}
}

// Store returns the asset store the renderer writes to.
func (r *Renderer) Store() *assets.Store { return r.store }

// Render emits the full Typst document.
func (r *Renderer) Render(tree *model.DocumentTree) (string, error) {
	if tree == nil || tree.Root == nil {
		return "", &Error{Kind: "nil tree", Pos: "root"}
	}

	var sb strings.Builder
	r.writePrelude(&sb, tree)

	byPage := groupByPage(tree)
	for i, pg := range byPage {
		if i > 0 {
			sb.WriteString("#pagebreak()\n\n")
		}
		columns := 1
		if pm := tree.PageFor(pg.page); pm != nil && pm.Columns > 1 {
			columns = pm.Columns
		}
		body, err := r.renderNodes(pg.nodes, pg.page)
		if err != nil {
			return "", err
		}
		if columns > 1 {
			sb.WriteString(fmt.Sprintf("#columns(%d, gutter: 1em)[\n", columns))
			sb.WriteString(body)
			sb.WriteString("]\n\n")
		} else {
			sb.WriteString(body)
		}
	}

	markup := sb.String()
	r.logger.Debug("document rendered",
		"pages", len(byPage),
		"bytes", len(markup),
		"assets", r.store.Len())
	return markup, nil
}

// RenderPages renders the prelude and each page's body separately, for
// assembling externally produced fragments with core fallbacks. Page
// bodies carry the column wrap but no pagebreaks.
func (r *Renderer) RenderPages(tree *model.DocumentTree) (string, map[int]string, error) {
	if tree == nil || tree.Root == nil {
		return "", nil, &Error{Kind: "nil tree", Pos: "root"}
	}

	var sb strings.Builder
	r.writePrelude(&sb, tree)

	bodies := make(map[int]string)
	for _, pg := range groupByPage(tree) {
		body, err := r.renderNodes(pg.nodes, pg.page)
		if err != nil {
			return "", nil, err
		}
		if pm := tree.PageFor(pg.page); pm != nil && pm.Columns > 1 {
			body = fmt.Sprintf("#columns(%d, gutter: 1em)[\n%s]\n", pm.Columns, body)
		}
		bodies[pg.page] += body
	}
	return sb.String(), bodies, nil
}

// writePrelude emits the page and text setup from the first page's
// geometry and the modal run size.
func (r *Renderer) writePrelude(sb *strings.Builder, tree *model.DocumentTree) {
	if len(tree.Pages) > 0 && tree.Pages[0].Width > 0 && tree.Pages[0].Height > 0 {
		pm := tree.Pages[0]
		sb.WriteString(fmt.Sprintf("#set page(width: %.1fmm, height: %.1fmm, margin: 2cm)\n",
			pm.Width*mmPerPoint, pm.Height*mmPerPoint))
	} else {
		sb.WriteString("#set page(paper: \"a4\", margin: 2cm)\n")
	}
	sb.WriteString(fmt.Sprintf("#set text(size: %.1fpt)\n", bodySize(tree)))
	sb.WriteString("#set par(justify: true, leading: 0.65em)\n\n")
	if tree.Meta.Title != "" {
		sb.WriteString(fmt.Sprintf("// %s\n\n", strings.ReplaceAll(tree.Meta.Title, "\n", " ")))
	}
}

// bodySize returns the modal leaf run font size in half-point buckets.
func bodySize(tree *model.DocumentTree) float64 {
	counts := make(map[int]int)
	tree.Walk(func(n *model.StructuralNode) bool {
		if n.Kind != model.KindParagraph {
			return true
		}
		for _, run := range n.Runs {
			if run.Font.Size > 0 {
				counts[int(math.Round(run.Font.Size/0.5))]++
			}
		}
		return true
	})
	best, bestCount := 0, 0
	for bucket, n := range counts {
		if n > bestCount || (n == bestCount && bucket < best) {
			best, bestCount = bucket, n
		}
	}
	if best == 0 {
		return defaultBodySize
	}
	return float64(best) * 0.5
}

type pageNodes struct {
	page  int
	nodes []*model.StructuralNode
}

// groupByPage splits the root's children into consecutive same-page
// groups, preserving order.
func groupByPage(tree *model.DocumentTree) []pageNodes {
	var out []pageNodes
	for _, n := range tree.Root.Children {
		if len(out) == 0 || out[len(out)-1].page != n.Page {
			out = append(out, pageNodes{page: n.Page})
		}
		out[len(out)-1].nodes = append(out[len(out)-1].nodes, n)
	}
	return out
}

// renderNodes emits one page's nodes.
func (r *Renderer) renderNodes(nodes []*model.StructuralNode, page int) (string, error) {
	var sb strings.Builder
	for i, n := range nodes {
		pos := fmt.Sprintf("node %d", i)
		if err := r.renderNode(&sb, n, page, pos); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func (r *Renderer) renderNode(sb *strings.Builder, n *model.StructuralNode, page int, pos string) error {
	switch n.Kind {
	case model.KindHeading:
		if n.Level < 1 || n.Level > 6 {
			return &Error{Page: page, Kind: fmt.Sprintf("heading level %d out of range", n.Level), Pos: pos}
		}
		sb.WriteString(strings.Repeat("=", n.Level))
		sb.WriteString(" ")
		sb.WriteString(Escape(n.Text()))
		sb.WriteString("\n\n")

	case model.KindParagraph:
		text := Escape(n.Text())
		if n.Style.Bold {
			text = "*" + text + "*"
		} else if n.Style.Italic {
			text = "_" + text + "_"
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")

	case model.KindList:
		for _, item := range n.Children {
			if err := r.renderListItem(sb, item); err != nil {
				return err
			}
		}
		sb.WriteString("\n")

	case model.KindListItem:
		if err := r.renderListItem(sb, n); err != nil {
			return err
		}
		sb.WriteString("\n")

	case model.KindCitation:
		sb.WriteString(Escape(n.Text()))
		sb.WriteString("\n\n")

	case model.KindReference:
		sb.WriteString(Escape(n.Text()))
		sb.WriteString("\n\n")

	case model.KindFootnote:
		sb.WriteString("#footnote[")
		sb.WriteString(Escape(n.Text()))
		sb.WriteString("]\n\n")

	case model.KindEquation:
		r.renderEquation(sb, n)

	case model.KindTable:
		if err := r.renderTable(sb, n, page, pos); err != nil {
			return err
		}

	case model.KindImage:
		if err := r.renderImage(sb, n, page, pos); err != nil {
			return err
		}

	default:
		return &Error{Page: page, Kind: fmt.Sprintf("unrenderable kind %s", n.Kind), Pos: pos}
	}
	return nil
}

var listMarkerRe = regexp.MustCompile(`^([\x{2022}\x{25e6}\x{25aa}\x{2013}*-]|\d{1,3}[.)]|[a-z][.)]|\([ivxlc]+\)|\([a-z]\)|\(\d{1,3}\))\s+`)

var numberedMarkerRe = regexp.MustCompile(`^(\d{1,3}[.)]|\([a-z]\)|\([ivxlc]+\)|[a-z][.)]|\(\d{1,3}\))\s`)

// renderListItem strips the source marker and re-emits the item with
// Typst list syntax, indented two spaces per nesting depth.
func (r *Renderer) renderListItem(sb *strings.Builder, item *model.StructuralNode) error {
	text := item.Text()
	marker := "- "
	if numberedMarkerRe.MatchString(text) {
		marker = "+ "
	}
	text = listMarkerRe.ReplaceAllString(text, "")

	depth := item.Depth
	if depth < 1 {
		depth = 1
	}
	sb.WriteString(strings.Repeat("  ", depth-1))
	sb.WriteString(marker)
	sb.WriteString(Escape(text))
	sb.WriteString("\n")
	return nil
}

// renderEquation emits math content without text escaping; the content
// is already in math position.
func (r *Renderer) renderEquation(sb *strings.Builder, n *model.StructuralNode) {
	body := strings.TrimSpace(n.Text())
	body = strings.TrimPrefix(body, "\\(")
	body = strings.TrimSuffix(body, "\\)")
	body = strings.Trim(body, "$")
	body = strings.TrimSpace(body)

	if n.EqKind == model.EqBlock {
		sb.WriteString("$ ")
		sb.WriteString(body)
		sb.WriteString(" $\n\n")
		return
	}
	sb.WriteString("$")
	sb.WriteString(body)
	sb.WriteString("$\n\n")
}

// renderTable emits #table with auto columns. Short rows are padded;
// geometry that cannot be repaired is fatal.
func (r *Renderer) renderTable(sb *strings.Builder, n *model.StructuralNode, page int, pos string) error {
	t := n.Table
	if t == nil {
		return &Error{Page: page, Kind: "table node without grid", Pos: pos}
	}
	cols := t.ColCount()
	if cols == 0 || t.RowCount() == 0 {
		return &Error{Page: page, Kind: "table with empty grid", Pos: pos}
	}
	for _, row := range t.Rows {
		if len(row) > cols {
			return &Error{Page: page, Kind: "table row wider than grid", Pos: pos}
		}
	}

	sb.WriteString("#table(\n  columns: (")
	for i := 0; i < cols; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("auto")
	}
	sb.WriteString("),\n  stroke: 0.5pt,\n")
	for _, row := range t.Rows {
		sb.WriteString(" ")
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(row) {
				text = row[c].Text
			}
			sb.WriteString(" [")
			sb.WriteString(Escape(text))
			sb.WriteString("],")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")\n\n")
	return nil
}

// renderImage registers the payload in the asset store and emits the
// figure reference.
func (r *Renderer) renderImage(sb *strings.Builder, n *model.StructuralNode, page int, pos string) error {
	img := n.Image
	if img == nil {
		return &Error{Page: page, Kind: "image node without asset", Pos: pos}
	}
	if len(img.Data) == 0 || img.Ext == "" {
		return &Error{Page: page, Kind: "image asset with empty payload", Pos: pos}
	}
	name := r.store.Put(img.Page, img.Index, img.Ext, img.Data)
	sb.WriteString(fmt.Sprintf("#figure(image(\"assets/%s\", width: 80%%), caption: [])\n\n", name))
	return nil
}
