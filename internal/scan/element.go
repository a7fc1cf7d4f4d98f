// Package scan reconstructs positioned text runs and image placements from
// each page's content stream.
package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Element is a text run or an image placement in absolute page coordinates.
// Y is measured from the top edge of the page.
type Element struct {
	Kind    Kind    `json:"kind"`
	Page    int     `json:"page"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Content string  `json:"content,omitempty"`
}

// Save writes elements as a JSON array.
func Save(path string, elements []Element) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(elements)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads an element list written by Save.
func Load(path string) ([]Element, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []Element
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return out, nil
}
