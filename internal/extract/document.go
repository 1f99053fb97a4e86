package extract

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// A4 page points, used when a page carries no usable MediaBox.
const (
	defaultPageWidth  = 595.28
	defaultPageHeight = 841.89
)

// fontDescriptorItalicFlag and fontDescriptorBoldFlag are the PDF
// FontDescriptor flag bits for italic and force-bold.
const (
	fontDescriptorItalicFlag = 1 << 6
	fontDescriptorBoldFlag   = 1 << 18
)

// Document is one independent read handle on a source PDF. Page workers
// must each open their own Document; the mutex serializes pdfcpu object
// access so the two backends of one worker may run concurrently.
type Document struct {
	path  string
	file  *os.File
	mu    sync.Mutex
	ctx   *pdfmodel.Context
	pages []pageInfo
	meta  model.DocMeta
}

// pageInfo caches the per-page facts resolved from the page tree.
type pageInfo struct {
	llx, lly  float64
	width     float64
	height    float64
	fonts     map[string]fontInfo
	resources types.Dict
}

// fontInfo is a font resource resolved to its base font.
type fontInfo struct {
	base   string
	bold   bool
	italic bool
}

// Open reads and validates the PDF at path and resolves its page tree.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	conf := pdfmodel.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	d := &Document{path: path, file: f, ctx: ctx}
	if err := d.resolvePages(); err != nil {
		f.Close()
		return nil, fmt.Errorf("resolve page tree of %s: %w", path, err)
	}
	d.resolveInfo()
	d.meta.Pages = ctx.PageCount
	return d, nil
}

// Close releases the underlying file handle.
func (d *Document) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Path returns the source file path.
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.ctx.PageCount }

// Meta returns the document information dictionary fields.
func (d *Document) Meta() model.DocMeta { return d.meta }

// PageSize returns the page dimensions in points. Pages are 1-indexed.
func (d *Document) PageSize(page int) (w, h float64) {
	if page < 1 || page > len(d.pages) {
		return defaultPageWidth, defaultPageHeight
	}
	return d.pages[page-1].width, d.pages[page-1].height
}

// pageFonts returns the font resource map for a page.
func (d *Document) pageFonts(page int) map[string]fontInfo {
	if page < 1 || page > len(d.pages) {
		return nil
	}
	return d.pages[page-1].fonts
}

// pageOrigin returns the MediaBox lower-left offset for a page.
func (d *Document) pageOrigin(page int) (llx, lly float64) {
	if page < 1 || page > len(d.pages) {
		return 0, 0
	}
	return d.pages[page-1].llx, d.pages[page-1].lly
}

// deref resolves indirect references to their target object.
func (d *Document) deref(o types.Object) types.Object {
	resolved, err := d.ctx.Dereference(o)
	if err != nil {
		return nil
	}
	return resolved
}

// derefDict resolves o to a dictionary, following one indirection.
func (d *Document) derefDict(o types.Object) (types.Dict, bool) {
	switch v := d.deref(o).(type) {
	case types.Dict:
		return v, true
	case types.StreamDict:
		return v.Dict, true
	}
	return nil, false
}

// resolvePages walks the page tree collecting MediaBox and font
// resources for every page, honoring attribute inheritance.
func (d *Document) resolvePages() error {
	catalog, ok := d.findCatalog()
	if !ok {
		return fmt.Errorf("no document catalog")
	}
	pagesObj, found := catalog.Find("Pages")
	if !found {
		return fmt.Errorf("catalog has no page tree")
	}
	root, ok := d.derefDict(pagesObj)
	if !ok {
		return fmt.Errorf("page tree root is not a dictionary")
	}

	inherited := pageInfo{width: defaultPageWidth, height: defaultPageHeight}
	d.walkPageTree(root, inherited, 0)

	for len(d.pages) < d.ctx.PageCount {
		d.pages = append(d.pages, pageInfo{width: defaultPageWidth, height: defaultPageHeight})
	}
	return nil
}

// findCatalog locates the document catalog in the cross-reference table.
func (d *Document) findCatalog() (types.Dict, bool) {
	for _, entry := range d.ctx.Table {
		if entry == nil || entry.Free {
			continue
		}
		dict, ok := entry.Object.(types.Dict)
		if !ok {
			continue
		}
		if typ, found := dict.Find("Type"); found {
			if name, isName := typ.(types.Name); isName && name == "Catalog" {
				return dict, true
			}
		}
	}
	return nil, false
}

// walkPageTree descends Kids depth-first, which yields pages in document
// order, applying MediaBox/Resources inheritance on the way down.
func (d *Document) walkPageTree(node types.Dict, inherited pageInfo, depth int) {
	if depth > 64 {
		return
	}

	info := inherited
	if mb, found := node.Find("MediaBox"); found {
		if llx, lly, w, h, ok := d.readRect(mb); ok {
			info.llx, info.lly, info.width, info.height = llx, lly, w, h
		}
	}
	if res, found := node.Find("Resources"); found {
		if resDict, ok := d.derefDict(res); ok {
			info.fonts = d.readFonts(resDict)
			info.resources = resDict
		}
	}

	typ, _ := node.Find("Type")
	if name, ok := typ.(types.Name); ok && name == "Page" {
		d.pages = append(d.pages, info)
		return
	}

	kids, found := node.Find("Kids")
	if !found {
		return
	}
	arr, ok := d.deref(kids).(types.Array)
	if !ok {
		return
	}
	for _, kid := range arr {
		if kidDict, ok := d.derefDict(kid); ok {
			d.walkPageTree(kidDict, info, depth+1)
		}
	}
}

// readRect decodes a [llx lly urx ury] rectangle array.
func (d *Document) readRect(o types.Object) (llx, lly, w, h float64, ok bool) {
	arr, isArr := d.deref(o).(types.Array)
	if !isArr || len(arr) != 4 {
		return 0, 0, 0, 0, false
	}
	var v [4]float64
	for i, item := range arr {
		f, isNum := toFloat(d.deref(item))
		if !isNum {
			return 0, 0, 0, 0, false
		}
		v[i] = f
	}
	if v[2] < v[0] {
		v[0], v[2] = v[2], v[0]
	}
	if v[3] < v[1] {
		v[1], v[3] = v[3], v[1]
	}
	w = v[2] - v[0]
	h = v[3] - v[1]
	if w <= 0 || h <= 0 {
		return 0, 0, 0, 0, false
	}
	return v[0], v[1], w, h, true
}

// readFonts maps font resource names (the Tf operands) to resolved base
// fonts with weight/slant flags.
func (d *Document) readFonts(resources types.Dict) map[string]fontInfo {
	fontObj, found := resources.Find("Font")
	if !found {
		return nil
	}
	fontDict, ok := d.derefDict(fontObj)
	if !ok {
		return nil
	}

	fonts := make(map[string]fontInfo, len(fontDict))
	for resName, ref := range fontDict {
		fd, ok := d.derefDict(ref)
		if !ok {
			continue
		}
		info := fontInfo{}
		if bf, found := fd.Find("BaseFont"); found {
			if name, isName := d.deref(bf).(types.Name); isName {
				info.base = cleanFontName(string(name))
			}
		}
		info.bold, info.italic = model.StyleFromFontName(info.base)
		if descObj, found := fd.Find("FontDescriptor"); found {
			if desc, ok := d.derefDict(descObj); ok {
				if flagsObj, found := desc.Find("Flags"); found {
					if flags, isNum := toFloat(d.deref(flagsObj)); isNum {
						fl := int(flags)
						info.bold = info.bold || fl&fontDescriptorBoldFlag != 0
						info.italic = info.italic || fl&fontDescriptorItalicFlag != 0
					}
				}
			}
		}
		fonts[resName] = info
	}
	return fonts
}

// resolveInfo pulls Title/Author/Subject/Producer from the document
// information dictionary when present.
func (d *Document) resolveInfo() {
	for _, entry := range d.ctx.Table {
		if entry == nil || entry.Free {
			continue
		}
		dict, ok := entry.Object.(types.Dict)
		if !ok {
			continue
		}
		// An info dict has no Type key but carries at least one of the
		// standard metadata fields alongside Producer or CreationDate.
		if _, hasType := dict.Find("Type"); hasType {
			continue
		}
		_, hasProducer := dict.Find("Producer")
		_, hasCreation := dict.Find("CreationDate")
		if !hasProducer && !hasCreation {
			continue
		}
		d.meta.Title = d.stringEntry(dict, "Title")
		d.meta.Author = d.stringEntry(dict, "Author")
		d.meta.Subject = d.stringEntry(dict, "Subject")
		d.meta.Producer = d.stringEntry(dict, "Producer")
		return
	}
}

func (d *Document) stringEntry(dict types.Dict, key string) string {
	o, found := dict.Find(key)
	if !found {
		return ""
	}
	if v, ok := d.deref(o).(types.StringLiteral); ok {
		return strings.TrimSpace(string(v))
	}
	return ""
}

// toFloat converts a numeric PDF object to float64.
func toFloat(o types.Object) (float64, bool) {
	switch v := o.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

// cleanFontName strips the 6-letter subset prefix ("ABCDEF+Times").
func cleanFontName(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}
