package assets

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/tiff"
)

// ImageInfo is the header-level description of an extracted image.
type ImageInfo struct {
	Name     string
	Width    int
	Height   int
	Channels int
}

type dims struct{ w, h int }

// CleanMasks removes soft-mask byproducts from dir. Images are grouped by
// exact (width, height); in a group holding at least one image with three or
// more channels, every single-channel image is deleted. Groups of one image,
// and groups with only single-channel images, are never touched. Files whose
// header cannot be decoded are left alone.
func CleanMasks(dir string) ([]string, error) {
	names, err := ContentImages(dir)
	if err != nil {
		return nil, err
	}
	var infos []ImageInfo
	for _, name := range names {
		info, err := ReadImageInfo(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	var removed []string
	for _, name := range MaskCandidates(infos) {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("failed to remove mask %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// MaskCandidates returns, in input order, the images CleanMasks would delete.
func MaskCandidates(infos []ImageInfo) []string {
	groups := make(map[dims][]ImageInfo)
	for _, in := range infos {
		k := dims{in.Width, in.Height}
		groups[k] = append(groups[k], in)
	}
	colored := make(map[dims]bool)
	for k, g := range groups {
		if len(g) < 2 {
			continue
		}
		for _, in := range g {
			if in.Channels >= 3 {
				colored[k] = true
				break
			}
		}
	}
	var out []string
	for _, in := range infos {
		if colored[dims{in.Width, in.Height}] && in.Channels == 1 {
			out = append(out, in.Name)
		}
	}
	return out
}

// ReadImageInfo decodes only the image header.
func ReadImageInfo(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return ImageInfo{
		Name:     filepath.Base(path),
		Width:    cfg.Width,
		Height:   cfg.Height,
		Channels: channels(cfg.ColorModel),
	}, nil
}

func channels(m color.Model) int {
	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			r, g, b, _ := c.RGBA()
			if r != g || g != b {
				return 3
			}
		}
		return 1
	}
	switch m {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model, color.CMYKModel:
		return 4
	default:
		return 3
	}
}
