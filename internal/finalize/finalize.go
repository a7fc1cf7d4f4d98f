// Package finalize turns a book's checkpoint log into its terminal artifact:
// image placeholders resolved to files and book metadata on every section.
package finalize

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thywilljoshua/bookingest/internal/linear"
	"github.com/thywilljoshua/bookingest/internal/manifest"
	"github.com/thywilljoshua/bookingest/internal/structure"
)

// Section is one subsection of the final artifact.
type Section struct {
	BookTitle       string   `json:"bookTitle"`
	ChapterTitle    string   `json:"chapterTitle"`
	SubsectionTitle string   `json:"subsectionTitle"`
	Content         string   `json:"content"`
	Year            int      `json:"year,omitempty"`
	License         string   `json:"license,omitempty"`
	Source          string   `json:"source,omitempty"`
	Images          []string `json:"images,omitempty"`
}

// Finalize resolves IMAGE_PLACEHOLDER_<n> tokens to the n-th entry of images
// (1-indexed) and attaches the book metadata. images must already be in
// placeholder order. Tokens beyond the listing are left as they are.
// Image references are written as prefix/<file name>.
func Finalize(records []structure.Section, images []string, book manifest.Entry, prefix string) []Section {
	out := make([]Section, 0, len(records))
	for _, r := range records {
		s := Section{
			BookTitle:       r.BookTitle,
			ChapterTitle:    r.ChapterTitle,
			SubsectionTitle: r.SubsectionTitle,
			Year:            book.Year,
			License:         book.License,
			Source:          book.Source,
		}
		if book.Title != "" {
			s.BookTitle = book.Title
		}
		s.Content, s.Images = resolve(r.Content, images, prefix)
		out = append(out, s)
	}
	return out
}

func resolve(content string, images []string, prefix string) (string, []string) {
	var refs []string
	resolved := linear.PlaceholderRe.ReplaceAllStringFunc(content, func(tok string) string {
		n, err := strconv.Atoi(strings.TrimPrefix(tok, linear.PlaceholderPrefix))
		if err != nil || n < 1 || n > len(images) {
			return tok
		}
		ref := imageRef(prefix, images[n-1])
		refs = append(refs, ref)
		return fmt.Sprintf("![Figure %d](%s)", n, ref)
	})
	return resolved, refs
}

func imageRef(prefix, file string) string {
	name := filepath.Base(file)
	if prefix == "" {
		return name
	}
	if strings.Contains(prefix, "://") {
		return strings.TrimRight(prefix, "/") + "/" + name
	}
	return path.Join(prefix, name)
}

// Write stores sections at dst as an indented JSON array. The file appears
// atomically so a partial artifact is never observed.
func Write(dst string, sections []Section) error {
	if sections == nil {
		sections = []Section{}
	}
	b, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Load reads an artifact written by Write.
func Load(src string) ([]Section, error) {
	b, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	var out []Section
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src, err)
	}
	return out, nil
}
