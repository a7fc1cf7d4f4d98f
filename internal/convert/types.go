package convert

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/thywilljoshua/bookingest/internal/ai"
	"github.com/thywilljoshua/bookingest/internal/linear"
	"github.com/thywilljoshua/bookingest/internal/manifest"
	"github.com/thywilljoshua/bookingest/internal/scan"
)

// AssetExtractor checks a source document and produces its cover and
// content images.
type AssetExtractor interface {
	PageCount(src string) (int, error)
	ExtractCover(ctx context.Context, src, prefix string) string
	ExtractImages(ctx context.Context, src, dir, prefix string) ([]string, error)
}

// Scanner turns a source document into positioned elements.
type Scanner interface {
	Analyze(path string) ([]scan.Element, error)
}

// Config wires the phases and says where artifacts live.
type Config struct {
	SourceDir      string
	WorkDir        string
	OutputDir      string
	CoverDir       string // empty disables cover generation
	ImagesDir      string
	ImageURLPrefix string

	Layout linear.Options

	Assets   AssetExtractor
	Scanner  Scanner
	Provider ai.Provider

	MaxTurns      int
	MaxRetries    int
	BaseBackoff   time.Duration
	RateLimitWait time.Duration

	Logger *slog.Logger
}

// BookPaths are the artifact locations of one book, all derived from its ID.
type BookPaths struct {
	Source      string
	CoverPrefix string // pdftoppm writes CoverPrefix + ".png"
	ImagesDir   string
	ImagePrefix string // pdfimages writes ImagePrefix-NNN.png inside ImagesDir
	ImageURL    string // empty: final artifacts reference images by file name
	Elements    string
	Text        string
	Checkpoint  string
	Final       string
}

// Cover returns the cover image path, or "" when covers are disabled.
func (p BookPaths) Cover() string {
	if p.CoverPrefix == "" {
		return ""
	}
	return p.CoverPrefix + ".png"
}

// Paths derives the artifact locations for e.
func Paths(e manifest.Entry, cfg Config) BookPaths {
	id := e.ID()
	src := e.Filename
	if !filepath.IsAbs(src) {
		src = filepath.Join(cfg.SourceDir, src)
	}
	p := BookPaths{
		Source:      src,
		ImagesDir:   filepath.Join(cfg.ImagesDir, id),
		ImagePrefix: id,
		Elements:    filepath.Join(cfg.WorkDir, id+".elements.json"),
		Text:        filepath.Join(cfg.WorkDir, id+".txt"),
		Checkpoint:  filepath.Join(cfg.WorkDir, id+".checkpoint.jsonl"),
		Final:       filepath.Join(cfg.OutputDir, id+".json"),
	}
	if cfg.ImageURLPrefix != "" {
		p.ImageURL = strings.TrimRight(cfg.ImageURLPrefix, "/") + "/" + id
	}
	if cfg.CoverDir != "" {
		p.CoverPrefix = filepath.Join(cfg.CoverDir, id)
	}
	return p
}
