package scan

import (
	"math"
	"strings"
)

// Matrix is a PDF transform [a b c d e f].
type Matrix [6]float64

// Identity is the default transform.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Mul returns m × n in the PDF row-vector convention.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// DefaultMinImageSize is the smallest width or height, in page units, an
// image placement must have to count as a content figure.
const DefaultMinImageSize = 50.0

// operand is a decoded content-stream operand.
type operand struct {
	kind operandKind
	num  float64
	str  string
	arr  []operand
}

type operandKind int

const (
	opNumber operandKind = iota
	opString
	opName
	opArray
	opOther
)

// glyphFont is what text showing needs from a font resource.
type glyphFont struct {
	decode  func(raw string) string
	width   func(code int) float64 // glyph width in 1/1000 text space units, 0 if unknown
	twoByte bool
}

var plainFont = glyphFont{
	decode: func(raw string) string { return raw },
	width:  func(int) float64 { return 0 },
}

// pageState interprets one page's operators. It tracks the graphics-state
// matrix stack and the text state and collects positioned elements.
//
// "cm" replaces the current matrix instead of concatenating it. That only
// holds for flat, axis-aligned placements (q, cm, Do, Q), which is the layout
// this pipeline targets.
type pageState struct {
	page    int
	height  float64
	minSize float64

	fonts   func(name string) glyphFont
	isImage func(xobject string) bool

	ctm   Matrix
	stack []Matrix

	font     glyphFont
	fontSize float64
	charSp   float64
	wordSp   float64
	hscale   float64
	leading  float64
	rise     float64
	tm, tlm  Matrix

	texts  []Element
	images []Element
}

func newPageState(page int, height, minSize float64) *pageState {
	return &pageState{
		page:    page,
		height:  height,
		minSize: minSize,
		fonts:   func(string) glyphFont { return plainFont },
		isImage: func(string) bool { return true },
		ctm:     Identity,
		font:    plainFont,
		hscale:  1,
		tm:      Identity,
		tlm:     Identity,
	}
}

func (s *pageState) apply(op string, args []operand) {
	switch op {
	// graphics state
	case "q":
		s.save()
	case "Q":
		s.restore()
	case "cm":
		if m, ok := matrixOf(args); ok {
			s.setTransform(m)
		}
	case "Do":
		if len(args) == 1 && s.isImage(args[0].str) {
			s.paintImage()
		}

	// text state
	case "BT":
		s.tm, s.tlm = Identity, Identity
	case "Tf":
		if len(args) == 2 {
			s.font = s.fonts(args[0].str)
			s.fontSize = args[1].num
		}
	case "Tc":
		if len(args) == 1 {
			s.charSp = args[0].num
		}
	case "Tw":
		if len(args) == 1 {
			s.wordSp = args[0].num
		}
	case "Tz":
		if len(args) == 1 {
			s.hscale = args[0].num / 100
		}
	case "TL":
		if len(args) == 1 {
			s.leading = args[0].num
		}
	case "Ts":
		if len(args) == 1 {
			s.rise = args[0].num
		}

	// text positioning
	case "Td":
		if len(args) == 2 {
			s.moveText(args[0].num, args[1].num)
		}
	case "TD":
		if len(args) == 2 {
			s.leading = -args[1].num
			s.moveText(args[0].num, args[1].num)
		}
	case "Tm":
		if m, ok := matrixOf(args); ok {
			s.tm, s.tlm = m, m
		}
	case "T*":
		s.moveText(0, -s.leading)

	// text showing
	case "Tj":
		if len(args) == 1 {
			s.showText(args)
		}
	case "TJ":
		if len(args) == 1 && args[0].kind == opArray {
			s.showText(args[0].arr)
		}
	case "'":
		s.moveText(0, -s.leading)
		if len(args) == 1 {
			s.showText(args)
		}
	case "\"":
		if len(args) == 3 {
			s.wordSp = args[0].num
			s.charSp = args[1].num
			s.moveText(0, -s.leading)
			s.showText(args[2:])
		}
	}
}

func matrixOf(args []operand) (Matrix, bool) {
	if len(args) != 6 {
		return Matrix{}, false
	}
	var m Matrix
	for i := range m {
		m[i] = args[i].num
	}
	return m, true
}

func (s *pageState) save() {
	s.stack = append(s.stack, s.ctm)
}

func (s *pageState) restore() {
	if len(s.stack) == 0 {
		s.ctm = Identity
		return
	}
	s.ctm = s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *pageState) setTransform(m Matrix) {
	s.ctm = m
}

// paintImage maps the unit square through the current matrix.
func (s *pageState) paintImage() {
	w := math.Abs(s.ctm[0])
	h := math.Abs(s.ctm[3])
	if w < s.minSize || h < s.minSize {
		return
	}
	s.images = append(s.images, Element{
		Kind:   KindImage,
		Page:   s.page,
		X:      s.ctm[4],
		Y:      s.height - s.ctm[5] - h,
		Width:  w,
		Height: h,
	})
}

func (s *pageState) moveText(tx, ty float64) {
	s.tlm = translate(tx, ty).Mul(s.tlm)
	s.tm = s.tlm
}

// showText emits one text run for a Tj/TJ operand list and advances the
// text matrix past it.
func (s *pageState) showText(parts []operand) {
	trm := Matrix{1, 0, 0, 1, 0, s.rise}.Mul(s.tm).Mul(s.ctm)

	var b strings.Builder
	advance := 0.0
	for _, p := range parts {
		switch p.kind {
		case opString:
			b.WriteString(s.font.decode(p.str))
			advance += s.stringAdvance(p.str)
		case opNumber:
			advance -= p.num / 1000 * s.fontSize * s.hscale
			// a wide negative kern is how many producers lay out word gaps
			if p.num < -250 && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
		}
	}
	s.tm = translate(advance, 0).Mul(s.tm)

	text := b.String()
	if text == "" {
		return
	}
	sx := math.Hypot(trm[0], trm[1])
	sy := math.Hypot(trm[2], trm[3])
	s.texts = append(s.texts, Element{
		Kind:    KindText,
		Page:    s.page,
		X:       trm[4],
		Y:       s.height - trm[5],
		Width:   advance * sx,
		Height:  s.fontSize * sy,
		Content: text,
	})
}

func (s *pageState) stringAdvance(raw string) float64 {
	step := 1
	if s.font.twoByte {
		step = 2
	}
	total := 0.0
	for i := 0; i+step <= len(raw); i += step {
		code := int(raw[i])
		if step == 2 {
			code = code<<8 | int(raw[i+1])
		}
		w := s.font.width(code) / 1000
		if w == 0 {
			w = 0.5
		}
		tx := w*s.fontSize + s.charSp
		if step == 1 && code == ' ' {
			tx += s.wordSp
		}
		total += tx * s.hscale
	}
	return total
}

// elements returns the page's text runs followed by its image placements.
func (s *pageState) elements() []Element {
	out := make([]Element, 0, len(s.texts)+len(s.images))
	out = append(out, s.texts...)
	return append(out, s.images...)
}
