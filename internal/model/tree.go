package model

// DocMeta is document-level metadata carried on the tree and the session.
type DocMeta struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Producer string `json:"producer,omitempty"`
	Pages    int    `json:"pages"`
}

// PageMeta records per-page layout facts as tree metadata rather than as
// content nodes, so the renderer decides how to express page and column
// boundaries.
type PageMeta struct {
	Index   int     `json:"index"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Columns int     `json:"columns"`
	Failed  bool    `json:"failed,omitempty"`
}

// DocumentTree is the canonical intermediate representation: one root per
// source document whose depth-first traversal order equals the intended
// reading order.
type DocumentTree struct {
	Root  *StructuralNode `json:"root"`
	Pages []PageMeta      `json:"pages"`
	Meta  DocMeta         `json:"meta"`
}

// NewDocumentTree returns an empty tree with an allocated root.
func NewDocumentTree() *DocumentTree {
	return &DocumentTree{Root: &StructuralNode{Kind: KindRoot}}
}

// Walk visits every node depth-first in reading order, root first.
// Returning false from fn stops the walk.
func (t *DocumentTree) Walk(fn func(n *StructuralNode) bool) {
	if t.Root == nil {
		return
	}
	walk(t.Root, fn)
}

func walk(n *StructuralNode, fn func(*StructuralNode) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// Leaves returns all content-bearing nodes in reading order.
func (t *DocumentTree) Leaves() []*StructuralNode {
	var out []*StructuralNode
	t.Walk(func(n *StructuralNode) bool {
		if n.Kind != KindRoot && n.Kind != KindList && n.IsLeaf() {
			out = append(out, n)
		}
		return true
	})
	return out
}

// PageFor returns the metadata for the given page index, or nil.
func (t *DocumentTree) PageFor(index int) *PageMeta {
	for i := range t.Pages {
		if t.Pages[i].Index == index {
			return &t.Pages[i]
		}
	}
	return nil
}

// NodeCount returns the number of nodes excluding the root.
func (t *DocumentTree) NodeCount() int {
	n := 0
	t.Walk(func(node *StructuralNode) bool {
		if node.Kind != KindRoot {
			n++
		}
		return true
	})
	return n
}
