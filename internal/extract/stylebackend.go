package extract

import (
	"context"
	"math"
	"strings"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// baselineTolerance groups pieces onto one style span when their
// baselines differ by less than this many points.
const baselineTolerance = 0.5

// StyleBackend extracts style-annotated spans and image assets. Its
// text segmentation is coarser than the text backend's, but its font
// metadata comes straight from the resolved font dictionaries and its
// image payloads from the page XObjects.
type StyleBackend struct{}

// NewStyleBackend returns the font/image backend.
func NewStyleBackend() *StyleBackend { return &StyleBackend{} }

// ExtractStylesAndImages implements StyleImageBackend.
func (b *StyleBackend) ExtractStylesAndImages(ctx context.Context, doc *Document, page int) ([]model.RawStyleSpan, []model.RawImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	data, err := doc.pageContent(page)
	if err != nil {
		return nil, nil, err
	}
	pc := parseContent(ctx, data)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	pageW, pageH := doc.PageSize(page)
	llx, lly := doc.pageOrigin(page)
	fonts := doc.pageFonts(page)

	spans := mergeStyleSpans(pc.pieces, fonts, llx, lly, pageW, pageH, page)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	images := placeImages(pc.draws, doc.pageImages(page), llx, lly, pageW, pageH, page)
	return spans, images, nil
}

// mergeStyleSpans joins consecutive same-font pieces on one baseline
// into a single span. Horizontal gaps wider than a quarter of the font
// size become word boundaries.
func mergeStyleSpans(pieces []textPiece, fonts map[string]fontInfo, llx, lly, pageW, pageH float64, page int) []model.RawStyleSpan {
	var spans []model.RawStyleSpan
	var cur *model.RawStyleSpan
	var curFont string
	var curY float64
	var curRight float64

	flush := func() { cur = nil }

	for _, piece := range pieces {
		if strings.TrimSpace(piece.text) == "" {
			continue
		}
		bbox := pieceBBox(piece, llx, lly, pageW, pageH)
		if bbox.IsEmpty() {
			continue
		}

		sameLine := cur != nil && piece.font == curFont &&
			math.Abs(piece.y-curY) < baselineTolerance &&
			piece.x >= curRight-columnAlignTolerance
		if sameLine {
			gap := piece.x - curRight
			if gap > piece.size/4 && !strings.HasSuffix(cur.Text, " ") {
				cur.Text += " "
			}
			cur.Text += piece.text
			cur.BBox = cur.BBox.Union(bbox)
			curRight = piece.x + piece.w
			continue
		}

		flush()
		font := model.FontDescriptor{Family: piece.font, Size: piece.size}
		if fi, ok := fonts[piece.font]; ok {
			if fi.base != "" {
				font.Family = fi.base
			}
			font.Bold = fi.bold
			font.Italic = fi.italic
		} else {
			font.Bold, font.Italic = model.StyleFromFontName(piece.font)
		}
		spans = append(spans, model.RawStyleSpan{
			Text:  piece.text,
			BBox:  bbox,
			Font:  font,
			Page:  page,
			Index: len(spans),
		})
		cur = &spans[len(spans)-1]
		curFont = piece.font
		curY = piece.y
		curRight = piece.x + piece.w
	}
	return spans
}

// placeImages joins Do placements with the resolved XObject payloads.
// An XObject drawn more than once yields one asset per placement.
func placeImages(draws []drawRect, objects map[string]imageObject, llx, lly, pageW, pageH float64, page int) []model.RawImageAsset {
	if len(objects) == 0 {
		return nil
	}
	var assets []model.RawImageAsset
	for _, dr := range draws {
		obj, ok := objects[dr.name]
		if !ok {
			continue
		}
		bbox := model.NewBBox(dr.x-llx, pageH-(dr.y-lly)-dr.h, dr.w, dr.h).Clamp(pageW, pageH)
		assets = append(assets, model.RawImageAsset{
			BBox:  bbox,
			PxW:   obj.pxW,
			PxH:   obj.pxH,
			Data:  obj.data,
			Ext:   obj.ext,
			Page:  page,
			Index: len(assets),
		})
	}
	return assets
}
