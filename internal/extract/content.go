package extract

import (
	"context"
	"math"
	"strconv"
)

// textPiece is one text-showing operation in PDF user space: x/y is the
// baseline origin (bottom-left page origin), w the estimated advance,
// size the effective font size after matrix scaling.
type textPiece struct {
	text string
	x, y float64
	w    float64
	size float64
	font string
}

// drawRect is one XObject paint with the box the current transformation
// matrix maps the unit square onto.
type drawRect struct {
	name       string
	x, y, w, h float64
}

// pageContent is the decoded result of walking one page's content stream.
type pageContent struct {
	pieces []textPiece
	draws  []drawRect
}

// matrix is a PDF transformation matrix [a b 0; c d 0; e f 1].
type matrix struct {
	a, b, c, d, e, f float64
}

func identityMatrix() matrix { return matrix{a: 1, d: 1} }

func translation(tx, ty float64) matrix { return matrix{a: 1, d: 1, e: tx, f: ty} }

// mul returns m × n, i.e. apply m first, then n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		a: m.a*n.a + m.b*n.c,
		b: m.a*n.b + m.b*n.d,
		c: m.c*n.a + m.d*n.c,
		d: m.c*n.b + m.d*n.d,
		e: m.e*n.a + m.f*n.c + n.e,
		f: m.e*n.b + m.f*n.d + n.f,
	}
}

// apply transforms the point (x, y) by m.
func (m matrix) apply(x, y float64) (float64, float64) {
	return x*m.a + y*m.c + m.e, x*m.b + y*m.d + m.f
}

// averageGlyphWidth approximates glyph advance as a fraction of the font
// size when no width tables are consulted.
const averageGlyphWidth = 0.5

// wordGapKern is the TJ kerning adjustment (thousandths of text space)
// below which a word boundary is assumed.
const wordGapKern = -180

// contentState tracks the graphics and text state while walking
// operators.
type contentState struct {
	ctm      matrix
	ctmStack []matrix
	tm       matrix
	tlm      matrix
	leading  float64
	font     string
	size     float64
	inText   bool
}

// parseCheckInterval is how many operators run between context checks,
// keeping the page deadline effective on pathological streams.
const parseCheckInterval = 4096

// parseContent walks a page content stream and collects positioned text
// pieces and XObject placements. Malformed input never fails: unknown
// operators are skipped and unbalanced state is tolerated. A cancelled
// context stops the walk early with whatever was collected; callers
// surface ctx.Err().
func parseContent(ctx context.Context, data []byte) *pageContent {
	out := &pageContent{}
	st := &contentState{ctm: identityMatrix(), tm: identityMatrix(), tlm: identityMatrix()}
	lx := newContentLexer(data)

	var operands []token
	ops := 0
	for {
		tok := lx.next()
		if tok.kind == tokEOF {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		ops++
		if ops%parseCheckInterval == 0 && ctx.Err() != nil {
			break
		}

		switch tok.val {
		case "q":
			st.ctmStack = append(st.ctmStack, st.ctm)
		case "Q":
			if n := len(st.ctmStack); n > 0 {
				st.ctm = st.ctmStack[n-1]
				st.ctmStack = st.ctmStack[:n-1]
			}
		case "cm":
			if m, ok := matrixOperands(operands); ok {
				st.ctm = m.mul(st.ctm)
			}
		case "BT":
			st.inText = true
			st.tm = identityMatrix()
			st.tlm = identityMatrix()
		case "ET":
			st.inText = false
		case "Tf":
			if len(operands) >= 2 {
				if operands[len(operands)-2].kind == tokName {
					st.font = operands[len(operands)-2].val
				}
				st.size = numOperand(operands, -1)
			}
		case "Td":
			st.nextLine(numOperand(operands, -2), numOperand(operands, -1))
		case "TD":
			ty := numOperand(operands, -1)
			st.leading = -ty
			st.nextLine(numOperand(operands, -2), ty)
		case "Tm":
			if m, ok := matrixOperands(operands); ok {
				st.tm = m
				st.tlm = m
			}
		case "T*":
			st.nextLine(0, -st.leading)
		case "TL":
			st.leading = numOperand(operands, -1)
		case "Tj":
			if s := stringOperand(operands, -1); s != "" {
				emitText(out, st, s, 0)
			}
		case "'":
			st.nextLine(0, -st.leading)
			if s := stringOperand(operands, -1); s != "" {
				emitText(out, st, s, 0)
			}
		case "\"":
			st.nextLine(0, -st.leading)
			if s := stringOperand(operands, -1); s != "" {
				emitText(out, st, s, 0)
			}
		case "TJ":
			emitTJ(out, st, operands)
		case "Do":
			if len(operands) > 0 && operands[len(operands)-1].kind == tokName {
				out.draws = append(out.draws, placeXObject(st, operands[len(operands)-1].val))
			}
		case "BI":
			lx.skipInlineImage()
		}
		operands = operands[:0]
	}
	return out
}

// nextLine moves the line matrix by (tx, ty) and resets the text matrix
// to it.
func (st *contentState) nextLine(tx, ty float64) {
	st.tlm = translation(tx, ty).mul(st.tlm)
	st.tm = st.tlm
}

// emitText records one shown string at the current text position and
// advances the text matrix by the estimated width. extraAdvance is in
// text-space units (TJ kerning already applied by the caller).
func emitText(out *pageContent, st *contentState, text string, extraAdvance float64) {
	trm := st.tm.mul(st.ctm)
	x, y := trm.e, trm.f
	scaleY := math.Hypot(trm.b, trm.d)
	scaleX := math.Hypot(trm.a, trm.c)
	size := st.size * scaleY
	if size <= 0 {
		size = st.size
	}

	advance := float64(len([]rune(text)))*averageGlyphWidth*st.size + extraAdvance
	width := advance * scaleX

	if text != "" {
		out.pieces = append(out.pieces, textPiece{
			text: text,
			x:    x,
			y:    y,
			w:    width,
			size: size,
			font: st.font,
		})
	}
	st.tm = translation(advance, 0).mul(st.tm)
}

// emitTJ handles the array form of text showing. String elements are
// joined into one piece; kerning adjustments shrink the advance, and a
// large negative adjustment inserts a word boundary.
func emitTJ(out *pageContent, st *contentState, operands []token) {
	var text []rune
	var kern float64
	inArray := false
	for _, op := range operands {
		switch op.kind {
		case tokArrayOpen:
			inArray = true
		case tokString:
			if inArray {
				text = append(text, []rune(op.val)...)
			}
		case tokNumber:
			if !inArray {
				continue
			}
			kern += -op.num / 1000 * st.size
			if op.num <= wordGapKern && len(text) > 0 && text[len(text)-1] != ' ' {
				text = append(text, ' ')
			}
		}
	}
	if len(text) == 0 {
		return
	}
	emitText(out, st, string(text), kern)
}

// placeXObject maps the unit square through the CTM to the drawn box.
func placeXObject(st *contentState, name string) drawRect {
	x0, y0 := st.ctm.apply(0, 0)
	x1, y1 := st.ctm.apply(1, 0)
	x2, y2 := st.ctm.apply(0, 1)
	x3, y3 := st.ctm.apply(1, 1)

	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))

	return drawRect{name: name, x: minX, y: minY, w: maxX - minX, h: maxY - minY}
}

// matrixOperands reads the trailing six numbers as a matrix.
func matrixOperands(operands []token) (matrix, bool) {
	nums := make([]float64, 0, 6)
	for _, op := range operands {
		if op.kind == tokNumber {
			nums = append(nums, op.num)
		}
	}
	if len(nums) < 6 {
		return matrix{}, false
	}
	nums = nums[len(nums)-6:]
	return matrix{a: nums[0], b: nums[1], c: nums[2], d: nums[3], e: nums[4], f: nums[5]}, true
}

// numOperand returns the idx-th operand from the end as a number
// (idx -1 = last), or 0.
func numOperand(operands []token, idx int) float64 {
	i := len(operands) + idx
	if i < 0 || i >= len(operands) || operands[i].kind != tokNumber {
		return 0
	}
	return operands[i].num
}

// stringOperand returns the idx-th operand from the end when it is a
// string.
func stringOperand(operands []token, idx int) string {
	i := len(operands) + idx
	if i < 0 || i >= len(operands) || operands[i].kind != tokString {
		return ""
	}
	return operands[i].val
}

// --- lexer ---

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokName
	tokArrayOpen
	tokArrayClose
	tokOperator
)

type token struct {
	kind tokenKind
	val  string
	num  float64
}

type contentLexer struct {
	data []byte
	pos  int
}

func newContentLexer(data []byte) *contentLexer {
	return &contentLexer{data: data}
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func (lx *contentLexer) next() token {
	lx.skipWhitespaceAndComments()
	if lx.pos >= len(lx.data) {
		return token{kind: tokEOF}
	}

	c := lx.data[lx.pos]
	switch {
	case c == '(':
		return token{kind: tokString, val: lx.readLiteralString()}
	case c == '<':
		if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '<' {
			lx.pos += 2
			lx.skipDict()
			return lx.next()
		}
		return token{kind: tokString, val: lx.readHexString()}
	case c == '/':
		return token{kind: tokName, val: lx.readName()}
	case c == '[':
		lx.pos++
		return token{kind: tokArrayOpen}
	case c == ']':
		lx.pos++
		return token{kind: tokArrayClose}
	case c == '{' || c == '}':
		lx.pos++
		return lx.next()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return lx.readNumber()
	default:
		return token{kind: tokOperator, val: lx.readOperator()}
	}
}

func (lx *contentLexer) skipWhitespaceAndComments() {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) {
			lx.pos++
			continue
		}
		if c == '%' {
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' {
				lx.pos++
			}
			continue
		}
		return
	}
}

// skipDict discards an inline dictionary (after "<<" was consumed).
func (lx *contentLexer) skipDict() {
	depth := 1
	for lx.pos < len(lx.data) && depth > 0 {
		if lx.pos+1 < len(lx.data) {
			if lx.data[lx.pos] == '<' && lx.data[lx.pos+1] == '<' {
				depth++
				lx.pos += 2
				continue
			}
			if lx.data[lx.pos] == '>' && lx.data[lx.pos+1] == '>' {
				depth--
				lx.pos += 2
				continue
			}
		}
		lx.pos++
	}
}

// readLiteralString decodes a (...) string with nesting and escapes.
func (lx *contentLexer) readLiteralString() string {
	lx.pos++ // consume '('
	var out []byte
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if c == '\\' && lx.pos+1 < len(lx.data) {
			lx.pos++
			e := lx.data[lx.pos]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b', 'f':
				// Discard.
			case '(', ')', '\\':
				out = append(out, e)
			case '\n':
				// Line continuation.
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for n := 0; n < 2 && lx.pos+1 < len(lx.data); n++ {
						nx := lx.data[lx.pos+1]
						if nx < '0' || nx > '7' {
							break
						}
						lx.pos++
						val = val*8 + int(nx-'0')
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
			lx.pos++
			continue
		}
		if c == '(' {
			depth++
			out = append(out, c)
		} else if c == ')' {
			depth--
			if depth == 0 {
				lx.pos++
				break
			}
			out = append(out, c)
		} else {
			out = append(out, c)
		}
		lx.pos++
	}
	return bytesToText(out)
}

// readHexString decodes a <...> hex string.
func (lx *contentLexer) readHexString() string {
	lx.pos++ // consume '<'
	var digits []byte
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		if c == '>' {
			break
		}
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err == nil {
			out = append(out, byte(v))
		}
	}
	return bytesToText(out)
}

func (lx *contentLexer) readName() string {
	lx.pos++ // consume '/'
	start := lx.pos
	for lx.pos < len(lx.data) && !isWhitespace(lx.data[lx.pos]) && !isDelimiter(lx.data[lx.pos]) {
		lx.pos++
	}
	return string(lx.data[start:lx.pos])
}

func (lx *contentLexer) readNumber() token {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '+' || c == '-' {
			lx.pos++
			continue
		}
		break
	}
	num, err := strconv.ParseFloat(string(lx.data[start:lx.pos]), 64)
	if err != nil {
		return token{kind: tokOperator, val: string(lx.data[start:lx.pos])}
	}
	return token{kind: tokNumber, num: num}
}

func (lx *contentLexer) readOperator() string {
	start := lx.pos
	for lx.pos < len(lx.data) && !isWhitespace(lx.data[lx.pos]) && !isDelimiter(lx.data[lx.pos]) {
		lx.pos++
	}
	if lx.pos == start {
		lx.pos++ // never stall on stray delimiters
	}
	return string(lx.data[start:lx.pos])
}

// skipInlineImage discards everything between BI and the terminating EI.
func (lx *contentLexer) skipInlineImage() {
	for lx.pos+1 < len(lx.data) {
		if lx.data[lx.pos] == 'E' && lx.data[lx.pos+1] == 'I' &&
			(lx.pos == 0 || isWhitespace(lx.data[lx.pos-1])) {
			lx.pos += 2
			return
		}
		lx.pos++
	}
	lx.pos = len(lx.data)
}

// bytesToText maps raw string bytes to displayable text. Printable
// ASCII and Latin-1 pass through; control bytes are dropped. Multi-byte
// CID text is out of scope for the content walker.
func bytesToText(raw []byte) string {
	out := make([]rune, 0, len(raw))
	for _, b := range raw {
		switch {
		case b == '\n' || b == '\t':
			out = append(out, ' ')
		case b >= 0x20 && b < 0x7f:
			out = append(out, rune(b))
		case b >= 0xa0:
			out = append(out, rune(b))
		}
	}
	return string(out)
}
