// Package convert runs the ingestion phases for every book of a manifest,
// skipping each phase whose artifact is already on disk.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/thywilljoshua/bookingest/internal/assets"
	"github.com/thywilljoshua/bookingest/internal/finalize"
	"github.com/thywilljoshua/bookingest/internal/linear"
	"github.com/thywilljoshua/bookingest/internal/manifest"
	"github.com/thywilljoshua/bookingest/internal/scan"
	"github.com/thywilljoshua/bookingest/internal/structure"
)

// Run processes entries one at a time. A book that fails is recorded in the
// report and the run moves on; the returned error joins every book failure.
func Run(ctx context.Context, entries []manifest.Entry, cfg Config) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	log := logger(cfg).With("run_id", report.RunID)
	log.Info("starting ingest", "books", len(entries))

	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := runBook(ctx, e, cfg, log.With("book", e.ID()))
		report.Books = append(report.Books, res)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Filename, res.Err))
		}
	}

	report.Elapsed = time.Since(start)
	log.Info("ingest finished",
		"complete", report.Count(StatusComplete),
		"incomplete", report.Count(StatusIncomplete),
		"skipped", report.Count(StatusSkipped),
		"failed", report.Count(StatusFailed),
		"elapsed", report.Elapsed.Round(time.Millisecond),
	)
	return report, errors.Join(errs...)
}

// Pending returns the entries Run would work on: those whose source exists
// and whose final artifact does not.
func Pending(entries []manifest.Entry, cfg Config) []manifest.Entry {
	var out []manifest.Entry
	for _, e := range entries {
		p := Paths(e, cfg)
		if exists(p.Source) && !exists(p.Final) {
			out = append(out, e)
		}
	}
	return out
}

func runBook(ctx context.Context, e manifest.Entry, cfg Config, log *slog.Logger) (res BookResult) {
	start := time.Now()
	p := Paths(e, cfg)
	res = BookResult{ID: e.ID(), Filename: e.Filename}
	defer func() { res.Elapsed = time.Since(start) }()

	fail := func(err error) BookResult {
		log.Error("book failed", "error", err)
		res.Status = StatusFailed
		res.Reason = err.Error()
		res.Err = err
		return res
	}

	if exists(p.Final) {
		log.Info("final artifact exists, skipping book", "path", p.Final)
		res.Status = StatusSkipped
		res.Reason = "already finalized"
		res.Output = p.Final
		return res
	}
	if !exists(p.Source) {
		log.Warn("source document missing, skipping book", "path", p.Source)
		res.Status = StatusSkipped
		res.Reason = "source missing"
		return res
	}

	if cfg.Assets == nil {
		return fail(errors.New("no asset extractor configured"))
	}
	pages, err := cfg.Assets.PageCount(p.Source)
	if err != nil {
		return fail(fmt.Errorf("source is not a readable PDF: %w", err))
	}
	if pages == 0 {
		return fail(errors.New("source has no pages"))
	}
	res.Pages = pages
	log.Info("source checked", "pages", pages)

	// 1. cover and content images
	if cover := p.Cover(); cover != "" {
		if exists(cover) {
			log.Info("cover exists, skipping", "path", cover)
		} else {
			cfg.Assets.ExtractCover(ctx, p.Source, p.CoverPrefix)
		}
	}
	if images, _ := assets.ContentImages(p.ImagesDir); len(images) > 0 {
		log.Info("images exist, skipping extraction", "dir", p.ImagesDir, "images", len(images))
	} else if _, err := cfg.Assets.ExtractImages(ctx, p.Source, p.ImagesDir, p.ImagePrefix); err != nil {
		return fail(fmt.Errorf("image extraction: %w", err))
	}

	// 2-3. positioned elements and the linear text
	if err := ensureText(p, cfg, log); err != nil {
		return fail(err)
	}

	// 4. structuring, resumed from the checkpoint log
	doc, err := linear.Load(p.Text)
	if err != nil {
		return fail(fmt.Errorf("failed to read linear text: %w", err))
	}
	if cfg.Provider == nil {
		return fail(errors.New("no chat provider configured"))
	}
	agent := &structure.Agent{
		Provider:      cfg.Provider,
		BookTitle:     e.Title,
		MaxTurns:      cfg.MaxTurns,
		MaxRetries:    cfg.MaxRetries,
		BaseBackoff:   cfg.BaseBackoff,
		RateLimitWait: cfg.RateLimitWait,
		Logger:        log,
	}
	cp := structure.OpenLog(p.Checkpoint)
	cp.Logger = log
	sres, err := agent.Run(ctx, doc, cp)
	res.Turns = sres.Turns
	if err != nil {
		return fail(fmt.Errorf("structuring: %w", err))
	}

	// 5. final artifact
	sections, images, err := finalizeBook(e, p, log)
	if err != nil {
		return fail(err)
	}
	res.Sections = sections
	res.Images = images
	res.Output = p.Final
	res.Status = StatusComplete
	if !sres.Complete {
		res.Status = StatusIncomplete
		res.Reason = sres.Reason
	}
	return res
}

// ensureText produces the linear text artifact, analyzing the document first
// when the elements artifact is missing too.
func ensureText(p BookPaths, cfg Config, log *slog.Logger) error {
	if exists(p.Text) {
		log.Info("linear text exists, skipping analysis and reconstruction", "path", p.Text)
		return nil
	}

	var elements []scan.Element
	if exists(p.Elements) {
		log.Info("elements exist, skipping analysis", "path", p.Elements)
		var err error
		if elements, err = scan.Load(p.Elements); err != nil {
			return fmt.Errorf("failed to read elements: %w", err)
		}
	} else {
		if cfg.Scanner == nil {
			return errors.New("no content scanner configured")
		}
		var err error
		if elements, err = cfg.Scanner.Analyze(p.Source); err != nil {
			return fmt.Errorf("content analysis: %w", err)
		}
		if err := scan.Save(p.Elements, elements); err != nil {
			return fmt.Errorf("failed to save elements: %w", err)
		}
	}

	doc := linear.Reconstruct(elements, cfg.Layout)
	if err := linear.Save(p.Text, doc); err != nil {
		return fmt.Errorf("failed to save linear text: %w", err)
	}
	log.Info("linear text reconstructed", "path", p.Text, "chars", len(doc), "placeholders", len(linear.Placeholders(doc)))
	return nil
}

func finalizeBook(e manifest.Entry, p BookPaths, log *slog.Logger) (sections, images int, err error) {
	cp := structure.OpenLog(p.Checkpoint)
	cp.Logger = log
	records, err := cp.LoadAll()
	if err != nil {
		return 0, 0, err
	}
	files, err := assets.ContentImages(p.ImagesDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return 0, 0, err
		}
		files = nil
	}
	out := finalize.Finalize(records, files, e, p.ImageURL)
	if err := finalize.Write(p.Final, out); err != nil {
		return 0, 0, fmt.Errorf("failed to write final artifact: %w", err)
	}
	log.Info("book finalized", "path", p.Final, "sections", len(out), "images", len(files))
	return len(out), len(files), nil
}

// FinalizeBook rebuilds the final artifact of e from its checkpoint log and
// image directory alone, overwriting any previous artifact.
func FinalizeBook(e manifest.Entry, cfg Config) (BookResult, error) {
	log := logger(cfg).With("book", e.ID())
	p := Paths(e, cfg)
	res := BookResult{ID: e.ID(), Filename: e.Filename, Output: p.Final}
	cp := structure.OpenLog(p.Checkpoint)
	if !cp.Exists() {
		return res, fmt.Errorf("%w: %s", structure.ErrNoCheckpoint, p.Checkpoint)
	}
	n, images, err := finalizeBook(e, p, log)
	if err != nil {
		res.Status = StatusFailed
		return res, err
	}
	res.Status = StatusComplete
	res.Sections = n
	res.Images = images
	return res, nil
}

func logger(cfg Config) *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
