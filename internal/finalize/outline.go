package finalize

import (
	"fmt"
	"strings"

	"github.com/thywilljoshua/bookingest/internal/manifest"
)

// Chapter groups the consecutive sections that share a chapter title.
type Chapter struct {
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Subsections []Subsection `json:"subsections,omitempty"`
}

// Subsection points back into the flat section list.
type Subsection struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Index int    `json:"index"`
	Chars int    `json:"chars"`
	Refs  int    `json:"images,omitempty"`
}

// Outline turns the flat section list into a chapter tree. A chapter title
// that reappears after another chapter starts a new node.
func Outline(sections []Section) []Chapter {
	var out []Chapter
	for i, s := range sections {
		if len(out) == 0 || out[len(out)-1].Title != s.ChapterTitle {
			out = append(out, Chapter{Title: s.ChapterTitle, Slug: manifest.Slugify(s.ChapterTitle)})
		}
		ch := &out[len(out)-1]
		ch.Subsections = append(ch.Subsections, Subsection{
			Title: s.SubsectionTitle,
			Slug:  manifest.Slugify(s.SubsectionTitle),
			Index: i,
			Chars: len(s.Content),
			Refs:  len(s.Images),
		})
	}
	return out
}

// RenderOutline formats chapters as a nested Markdown list.
func RenderOutline(bookTitle string, chapters []Chapter) string {
	var b strings.Builder
	if bookTitle != "" {
		b.WriteString("# " + bookTitle + "\n\n")
	}
	for _, ch := range chapters {
		b.WriteString(fmt.Sprintf("- [%s](#%s)\n", ch.Title, ch.Slug))
		for _, sub := range ch.Subsections {
			if sub.Title == "" {
				continue
			}
			b.WriteString(fmt.Sprintf("  - [%s](#%s)", sub.Title, sub.Slug))
			if sub.Refs > 0 {
				b.WriteString(fmt.Sprintf(" (%d images)", sub.Refs))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
