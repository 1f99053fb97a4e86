package model

// NodeKind is the classification of a structural node.
type NodeKind int

const (
	// KindRoot is the single document root.
	KindRoot NodeKind = iota
	// KindHeading is a section heading with a level of 1..6.
	KindHeading
	// KindParagraph is body text, the default classification.
	KindParagraph
	// KindList groups consecutive list items.
	KindList
	// KindListItem is one bulleted or numbered item with an indent depth.
	KindListItem
	// KindCitation is an in-text citation marker or fragment.
	KindCitation
	// KindReference is one entry of the reference list.
	KindReference
	// KindFootnote is footnote-band text.
	KindFootnote
	// KindEquation is a mathematical expression, inline or block.
	KindEquation
	// KindTable wraps a detected table grid.
	KindTable
	// KindImage wraps an extracted image asset.
	KindImage
)

// String returns the lowercase name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindListItem:
		return "list_item"
	case KindCitation:
		return "citation"
	case KindReference:
		return "reference"
	case KindFootnote:
		return "footnote"
	case KindEquation:
		return "equation"
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// EquationKind distinguishes inline from display equations.
type EquationKind int

const (
	// EqInline is an equation embedded in running text.
	EqInline EquationKind = iota
	// EqBlock is a display equation on its own line.
	EqBlock
)

// Alignment is a horizontal alignment hint.
type Alignment int

const (
	// AlignLeft is the default alignment.
	AlignLeft Alignment = iota
	// AlignCenter marks horizontally centered content.
	AlignCenter
	// AlignRight marks right-aligned content.
	AlignRight
)

// StyleHints carries renderer-relevant style gathered during analysis.
type StyleHints struct {
	Bold   bool      `json:"bold,omitempty"`
	Italic bool      `json:"italic,omitempty"`
	Align  Alignment `json:"align,omitempty"`
}

// StructuralNode is one typed element of the document tree. Leaf kinds
// hold Runs (or a Table/Image payload) and no children; KindRoot and
// KindList hold children only.
type StructuralNode struct {
	Kind NodeKind `json:"kind"`

	// Level is the heading level (1..6) for KindHeading.
	Level int `json:"level,omitempty"`
	// Depth is the nesting depth (1..) for KindListItem.
	Depth int `json:"depth,omitempty"`
	// EqKind is set for KindEquation.
	EqKind EquationKind `json:"eq_kind,omitempty"`

	Runs  []UnifiedRun   `json:"runs,omitempty"`
	Table *RawTable      `json:"table,omitempty"`
	Image *RawImageAsset `json:"image,omitempty"`

	Children []*StructuralNode `json:"children,omitempty"`
	Style    StyleHints        `json:"style,omitempty"`

	// Page is the page index the node starts on.
	Page int `json:"page"`
}

// Text concatenates the node's run texts in order, separated by spaces.
func (n *StructuralNode) Text() string {
	switch len(n.Runs) {
	case 0:
		return ""
	case 1:
		return n.Runs[0].Text
	}
	parts := make([]string, len(n.Runs))
	for i, r := range n.Runs {
		parts[i] = r.Text
	}
	return joinSpaced(parts)
}

func joinSpaced(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}

// BBox returns the union of the node's run/payload boxes.
func (n *StructuralNode) BBox() BBox {
	var b BBox
	for _, r := range n.Runs {
		b = b.Union(r.BBox)
	}
	if n.Table != nil {
		b = b.Union(n.Table.BBox)
	}
	if n.Image != nil {
		b = b.Union(n.Image.BBox)
	}
	for _, c := range n.Children {
		b = b.Union(c.BBox())
	}
	return b
}

// IsLeaf reports whether the node carries content directly rather than
// through children.
func (n *StructuralNode) IsLeaf() bool { return len(n.Children) == 0 }
