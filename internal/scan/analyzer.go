package scan

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	rpdf "rsc.io/pdf"
)

// Analyzer turns a document into a page-ordered list of positioned elements.
type Analyzer struct {
	MinImageSize float64 // defaults to DefaultMinImageSize
	Logger       *slog.Logger
}

// Analyze scans every page of the document at path. A page whose content
// cannot be fully interpreted contributes what was collected before the
// fault; the fault is logged.
func (a *Analyzer) Analyze(path string) ([]Element, error) {
	log := a.Logger
	if log == nil {
		log = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	r, err := newReader(f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", filepath.Base(path), err)
	}

	n, err := numPage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read page tree of %s: %w", filepath.Base(path), err)
	}
	var out []Element
	for i := 1; i <= n; i++ {
		els, err := a.scanPage(r, i)
		if err != nil {
			log.Warn("page scan incomplete", "page", i, "error", err)
		}
		out = append(out, els...)
	}
	log.Info("content streams analyzed", "pages", n, "elements", len(out))
	return out, nil
}

func (a *Analyzer) minSize() float64 {
	if a.MinImageSize > 0 {
		return a.MinImageSize
	}
	return DefaultMinImageSize
}

// rsc.io/pdf reports malformed input by panicking.
func newReader(f *os.File, size int64) (r *rpdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return rpdf.NewReader(f, size)
}

func numPage(r *rpdf.Reader) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return r.NumPage(), nil
}

// scanPage resolves and interprets page i. Any panic from the reader, even
// while loading the page object itself, is returned as an error along with
// whatever was collected.
func (a *Analyzer) scanPage(r *rpdf.Reader, page int) (els []Element, err error) {
	var st *pageState
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed page: %v", p)
		}
		if st != nil {
			els = st.elements()
		}
	}()

	p := r.Page(page)
	if p.V.IsNull() {
		return nil, errors.New("page not found in page tree")
	}
	st = newPageState(page, pageHeight(p), a.minSize())

	fonts := make(map[string]glyphFont)
	st.fonts = func(name string) glyphFont {
		if gf, ok := fonts[name]; ok {
			return gf
		}
		gf := fontOf(p.Font(name))
		fonts[name] = gf
		return gf
	}
	xobjects := p.Resources().Key("XObject")
	st.isImage = func(name string) bool {
		return xobjects.Key(name).Key("Subtype").Name() == "Image"
	}

	for _, strm := range contentStreams(p) {
		rpdf.Interpret(strm, func(stk *rpdf.Stack, op string) {
			n := stk.Len()
			args := make([]operand, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = operandOf(stk.Pop())
			}
			st.apply(op, args)
		})
	}
	return nil, nil
}

func contentStreams(p rpdf.Page) []rpdf.Value {
	c := p.V.Key("Contents")
	switch c.Kind() {
	case rpdf.Stream:
		return []rpdf.Value{c}
	case rpdf.Array:
		out := make([]rpdf.Value, 0, c.Len())
		for i := 0; i < c.Len(); i++ {
			out = append(out, c.Index(i))
		}
		return out
	}
	return nil
}

// pageHeight reads the (possibly inherited) MediaBox; US Letter otherwise.
func pageHeight(p rpdf.Page) float64 {
	for v := p.V; v.Kind() == rpdf.Dict; v = v.Key("Parent") {
		if box := v.Key("MediaBox"); box.Kind() == rpdf.Array && box.Len() == 4 {
			return math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
		}
	}
	return 792
}

func fontOf(f rpdf.Font) glyphFont {
	enc := f.Encoder()
	return glyphFont{
		decode:  enc.Decode,
		width:   f.Width,
		twoByte: f.V.Key("Subtype").Name() == "Type0",
	}
}

func operandOf(v rpdf.Value) operand {
	switch v.Kind() {
	case rpdf.Integer, rpdf.Real:
		return operand{kind: opNumber, num: v.Float64()}
	case rpdf.String:
		return operand{kind: opString, str: v.RawString()}
	case rpdf.Name:
		return operand{kind: opName, str: v.Name()}
	case rpdf.Array:
		items := make([]operand, v.Len())
		for i := range items {
			items[i] = operandOf(v.Index(i))
		}
		return operand{kind: opArray, arr: items}
	}
	return operand{kind: opOther}
}
