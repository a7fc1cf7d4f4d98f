// Package assets pulls the cover and the embedded content images out of a
// source document with the poppler command-line tools.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Extractor runs the external raster tools. The zero value uses pdftoppm and
// pdfimages from PATH.
type Extractor struct {
	PDFToPPM    string // path to pdftoppm
	PDFImages   string // path to pdfimages
	CoverDPI    int
	ImageFormat string // "png" (default) or "tiff"
	Logger      *slog.Logger
}

// ImageFormats are the content image formats pdfimages can be asked for.
var ImageFormats = map[string]string{
	"png":  "-png",
	"tiff": "-tiff",
}

func (e *Extractor) formatFlag() (string, error) {
	if e.ImageFormat == "" {
		return "-png", nil
	}
	flag, ok := ImageFormats[e.ImageFormat]
	if !ok {
		return "", fmt.Errorf("unsupported image format %q", e.ImageFormat)
	}
	return flag, nil
}

func (e *Extractor) log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// ExtractCover renders page 1 to <prefix>.png. It is best-effort: failures
// are logged and the returned path is empty.
func (e *Extractor) ExtractCover(ctx context.Context, src, prefix string) string {
	log := e.log()
	if err := os.MkdirAll(filepath.Dir(prefix), 0o755); err != nil {
		log.Warn("cover generation failed", "error", err)
		return ""
	}
	dpi := e.CoverDPI
	if dpi <= 0 {
		dpi = 150
	}
	// -singlefile: no page number suffix, output is <prefix>.png
	cmd := exec.CommandContext(ctx, tool(e.PDFToPPM, "pdftoppm"),
		"-png",
		"-f", "1",
		"-l", "1",
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		src,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Warn("cover generation failed", "error", err, "output", string(out))
		return ""
	}
	path := prefix + ".png"
	if _, err := os.Stat(path); err != nil {
		log.Warn("pdftoppm did not create expected cover", "path", path)
		return ""
	}
	log.Info("cover generated", "path", path)
	return path
}

// ExtractImages writes every embedded image of src into dir as
// <prefix>-NNN.png (or .tif), removes soft-mask duplicates and returns the
// resulting ordered listing. Any extraction failure is returned.
func (e *Extractor) ExtractImages(ctx context.Context, src, dir, prefix string) ([]string, error) {
	log := e.log()
	format, err := e.formatFlag()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	cmd := exec.CommandContext(ctx, tool(e.PDFImages, "pdfimages"),
		format,
		src,
		filepath.Join(dir, prefix),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdfimages failed: %w (output: %s)", err, string(out))
	}

	removed, err := CleanMasks(dir)
	if err != nil {
		return nil, fmt.Errorf("mask cleanup failed: %w", err)
	}
	images, err := ContentImages(dir)
	if err != nil {
		return nil, err
	}
	log.Info("images extracted", "dir", dir, "images", len(images), "masks_removed", len(removed))
	return images, nil
}

func tool(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

// PageCount checks that src parses as a PDF and reports its page count.
func (e *Extractor) PageCount(src string) (int, error) {
	return PageCount(src)
}
