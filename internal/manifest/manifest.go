// Package manifest reads the list of books to ingest.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when the manifest file does not exist.
var ErrNotFound = errors.New("manifest not found")

// Entry describes one book.
type Entry struct {
	Filename string `json:"filename" yaml:"filename"`
	Title    string `json:"title" yaml:"title"`
	Year     int    `json:"year,omitempty" yaml:"year,omitempty"`
	License  string `json:"license,omitempty" yaml:"license,omitempty"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`
}

// ID is the book's deterministic artifact prefix, derived from its filename.
func (e Entry) ID() string {
	base := filepath.Base(e.Filename)
	return Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Load reads a manifest. Files ending in .yaml or .yml are YAML, anything
// else is JSON. Both hold a list of entries.
func Load(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &entries)
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		err = dec.Decode(&entries)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return entries, Validate(entries)
}

// Validate rejects entries without a filename and entries whose IDs collide,
// since those would share artifacts.
func Validate(entries []Entry) error {
	seen := make(map[string]string, len(entries))
	var errs []error
	for i, e := range entries {
		if strings.TrimSpace(e.Filename) == "" {
			errs = append(errs, fmt.Errorf("entry %d: missing filename", i+1))
			continue
		}
		id := e.ID()
		if id == "" {
			errs = append(errs, fmt.Errorf("entry %d: filename %q yields an empty id", i+1, e.Filename))
			continue
		}
		if prev, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("entry %d: %q and %q share id %q", i+1, prev, e.Filename, id))
			continue
		}
		seen[id] = e.Filename
	}
	return errors.Join(errs...)
}

// Find returns the entry whose filename (or base name) matches name.
func Find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Filename == name || filepath.Base(e.Filename) == filepath.Base(name) {
			return e, true
		}
	}
	return Entry{}, false
}

var nonSlug = regexp.MustCompile(`[^a-z0-9\-]+`)

// Slugify lowercases s and reduces it to ASCII letters, digits and single
// dashes.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}
