// Package linear serializes positioned elements into one reading-order text
// stream with paragraph breaks and numbered image placeholders.
package linear

import (
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/thywilljoshua/bookingest/internal/scan"
)

// PlaceholderPrefix starts every image placeholder token.
const PlaceholderPrefix = "IMAGE_PLACEHOLDER_"

const paragraphBreak = "\n\n"

// Options tunes reconstruction. Zero values select the defaults.
type Options struct {
	LineTolerance float64 // y distance treated as the same line, default 5
	ParagraphGap  float64 // vertical gap that starts a paragraph, default 10
}

func (o Options) withDefaults() Options {
	if o.LineTolerance <= 0 {
		o.LineTolerance = 5
	}
	if o.ParagraphGap <= 0 {
		o.ParagraphGap = 10
	}
	return o
}

// Sort orders elements by page, then by line (y within the tolerance), then x.
// The input slice is not modified.
func Sort(elements []scan.Element, opts Options) []scan.Element {
	opts = opts.withDefaults()
	out := make([]scan.Element, len(elements))
	copy(out, elements)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if math.Abs(a.Y-b.Y) > opts.LineTolerance {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

// Reconstruct produces the linear document for elements.
func Reconstruct(elements []scan.Element, opts Options) string {
	opts = opts.withDefaults()
	sorted := Sort(elements, opts)

	var b strings.Builder
	var prev *scan.Element
	images := 0
	for i := range sorted {
		el := &sorted[i]
		if prev != nil {
			if el.Page > prev.Page {
				// page boundary
				breakParagraph(&b)
			} else if el.Y-(prev.Y+prev.Height) > opts.ParagraphGap {
				breakParagraph(&b)
			}
		}

		switch el.Kind {
		case scan.KindImage:
			images++
			breakParagraph(&b)
			b.WriteString(Placeholder(images))
			b.WriteString(paragraphBreak)
		default:
			if b.Len() > 0 && !endsInSpace(b.String()) {
				b.WriteByte(' ')
			}
			b.WriteString(el.Content)
		}
		prev = el
	}
	return strings.TrimSpace(b.String())
}

// breakParagraph ends the current paragraph unless the output is empty or
// already ends with a break.
func breakParagraph(b *strings.Builder) {
	s := b.String()
	if s == "" || strings.HasSuffix(s, paragraphBreak) {
		return
	}
	b.WriteString(paragraphBreak)
}

func endsInSpace(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// Placeholder renders the token for the n-th image (1-indexed).
func Placeholder(n int) string {
	return PlaceholderPrefix + strconv.Itoa(n)
}

// PlaceholderRe matches placeholder tokens and captures their index.
var PlaceholderRe = regexp.MustCompile(PlaceholderPrefix + `(\d+)`)

// Placeholders returns the placeholder indices of doc in order of appearance.
func Placeholders(doc string) []int {
	var out []int
	for _, m := range PlaceholderRe.FindAllStringSubmatch(doc, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Save writes the linear document to path.
func Save(path, doc string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(doc), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a linear document written by Save.
func Load(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
