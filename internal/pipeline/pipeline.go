package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tdeslauriers/cantor/internal/song"
	"github.com/tdeslauriers/cantor/internal/util"
)

// Pipeline is the interface for the ingestion engine which drives staged
// uploads through conversion, rasterization, and distribution into song
// directories awaiting review.
type Pipeline interface {

	// Trigger starts an asynchronous batch run if none is active and reports
	// whether one was started. A trigger while a run is active is a no-op;
	// the run in flight already covers pending work recorded before it
	// finishes its pass.
	Trigger(ctx context.Context) bool
}

// NewPipeline creates the ingestion engine, returning a pointer to the
// concrete implementation. dataRoot is the volume holding the staging,
// pdf, and song directories.
func NewPipeline(
	dataRoot string,
	concurrency int,
	reg song.Registry,
	conv Converter,
	guard DiskGuard,
	trim Trimmer,
	locks *DirLocks,
) Pipeline {

	if concurrency < 1 {
		concurrency = 1
	}

	return &pipeline{
		stagingDir:  filepath.Join(dataRoot, util.DirStaging),
		pdfsDir:     filepath.Join(dataRoot, util.DirPdfs),
		songsDir:    filepath.Join(dataRoot, util.DirSongs),
		concurrency: concurrency,

		registry:  reg,
		converter: conv,
		guard:     guard,
		trimmer:   trim,
		locks:     locks,

		// single-slot semaphore: occupancy is the "run in progress" state
		slot: make(chan struct{}, 1),

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackagePipeline)).
			With(slog.String(util.ComponentKey, util.ComponentPipeline)),
	}
}

var _ Pipeline = (*pipeline)(nil)

// pipeline is the concrete implementation of the Pipeline interface.
type pipeline struct {
	stagingDir  string
	pdfsDir     string
	songsDir    string
	concurrency int

	registry  song.Registry
	converter Converter
	guard     DiskGuard
	trimmer   Trimmer
	locks     *DirLocks

	slot chan struct{}

	logger *slog.Logger
}

// Trigger is the concrete implementation of the interface method which
// starts a batch run if none is active.
func (p *pipeline) Trigger(ctx context.Context) bool {

	select {
	case p.slot <- struct{}{}:
		go func() {
			defer func() { <-p.slot }()

			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(fmt.Sprintf("batch run failed: %v", err))
			}
		}()
		return true
	default:
		return false
	}
}

// processBatch runs one full pass over pending uploads. Individual
// documents fail independently; only batch-level setup returns an error.
func (p *pipeline) processBatch(ctx context.Context) error {

	// the data dirs are created lazily so a wiped volume heals on next run
	for _, dir := range []string{p.stagingDir, p.pdfsDir, p.songsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data dir %s: %v", dir, err)
		}
	}

	// adopt staged files that have no registry row (crash recovery) and
	// drop staged files whose names fail the grammar
	p.recoverStrays(ctx)

	batch, err := p.registry.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pending uploads: %v", err)
	}

	if len(batch) == 0 {
		p.logger.Info("no pending uploads to process")
		return nil
	}

	p.logger.Info(fmt.Sprintf("processing batch of %d pending uploads", len(batch)))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)

	paused := false
	for _, upload := range batch {

		// advisory back-pressure: stop starting new documents for the rest
		// of this pass; items already in flight finish
		if !paused && p.guard.NearCapacity() {
			p.logger.Warn("disk near capacity, pausing remaining batch items")
			paused = true
		}
		if paused {
			continue
		}

		eg.Go(func() error {
			p.processDocument(gctx, upload)
			return nil // document failures never abort siblings
		})
	}

	// workers return nil; the group is used for bounding, not error fan-in
	_ = eg.Wait()

	p.logger.Info("batch run complete")

	return nil
}

// recoverStrays reconciles the staging directory with the registry: staged
// documents with no record (a crash between write and insert, or files
// dropped in by hand) are adopted under the name grammar, and files whose
// names fail the grammar are deleted so they cannot loop forever.
func (p *pipeline) recoverStrays(ctx context.Context) {

	entries, err := os.ReadDir(p.stagingDir)
	if err != nil {
		p.logger.Error(fmt.Sprintf("failed to read staging dir %s: %v", p.stagingDir, err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		staged := filepath.Join(p.stagingDir, entry.Name())

		known, err := p.registry.HasStagingPath(ctx, staged)
		if err != nil {
			p.logger.Error(fmt.Sprintf("failed to check registry for %s: %v", staged, err))
			continue
		}
		if known {
			continue
		}

		base := entry.Name()
		ext := filepath.Ext(base)
		names, err := song.ParseName(base[:len(base)-len(ext)])
		if err != nil {
			p.logger.Info(fmt.Sprintf("deleting stray non-song file from staging: %s", base))
			if err := os.Remove(staged); err != nil {
				p.logger.Error(fmt.Sprintf("failed to delete stray file %s: %v", staged, err))
			}
			continue
		}

		if _, err := p.registry.Add(ctx, base[:len(base)-len(ext)], names, staged); err != nil {
			p.logger.Error(fmt.Sprintf("failed to adopt stray staged file %s: %v", staged, err))
			continue
		}

		p.logger.Info(fmt.Sprintf("adopted stray staged file %s", base))
	}
}

// processDocument drives one upload through its stages. Any stage failure
// is terminal for this document only; intermediates are cleaned up on every
// exit path.
func (p *pipeline) processDocument(ctx context.Context, u song.Upload) {

	log := p.logger.With(slog.String("upload", u.Id), slog.String("title", u.Title))

	if err := p.registry.SetStatus(ctx, u.Id, song.StatusProcessing, ""); err != nil {
		log.Error(fmt.Sprintf("failed to mark upload processing: %v", err))
		return
	}

	// the staged source is consumed by this run whatever the outcome;
	// failed documents are not retried, which keeps the staging dir from
	// accumulating poison inputs
	defer func() {
		if err := os.Remove(u.StagingPath); err != nil && !os.IsNotExist(err) {
			log.Error(fmt.Sprintf("failed to delete staged source %s: %v", u.StagingPath, err))
		}
	}()

	pdfPath, err := p.converter.ToPdf(ctx, u.StagingPath, p.pdfsDir)
	if err != nil {
		log.Error(fmt.Sprintf("pdf conversion failed: %v", err))
		p.fail(ctx, u.Id, fmt.Sprintf("pdf conversion: %v", err))
		return
	}

	defer func() {
		if err := os.Remove(pdfPath); err != nil && !os.IsNotExist(err) {
			log.Error(fmt.Sprintf("failed to delete pdf intermediate %s: %v", pdfPath, err))
		}
	}()

	// per-document scratch dir so concurrent rasterizations never mix pages
	tempDir := filepath.Join(p.songsDir, util.DirTemp, u.Id)
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Error(fmt.Sprintf("failed to clean raster scratch dir %s: %v", tempDir, err))
		}
	}()

	images := p.converter.ToImages(ctx, pdfPath, tempDir)
	images = p.trimmer.Trim(images)
	if len(images) == 0 {
		log.Error("rasterization produced no images, nothing to ingest")
		p.fail(ctx, u.Id, "rasterization produced no images")
		return
	}

	// fan out: every resolved song name receives every slide, allocated
	// independently per directory
	for _, name := range u.Names {
		if err := p.distribute(name, images, log); err != nil {
			log.Error(fmt.Sprintf("failed to distribute slides to song '%s': %v", name, err))
		}
	}

	if err := p.registry.SetStatus(ctx, u.Id, song.StatusComplete, ""); err != nil {
		log.Error(fmt.Sprintf("failed to mark upload complete: %v", err))
		return
	}

	log.Info(fmt.Sprintf("processed %d slides into %d song directories", len(images), len(u.Names)))
}

// distribute copies the rasterized images into one song directory under
// freshly allocated indices. The directory lock is held for the whole
// read-allocate-copy sequence so concurrent documents for the same song
// cannot collide.
func (p *pipeline) distribute(name string, images []string, log *slog.Logger) error {

	p.locks.Lock(name)
	defer p.locks.Unlock(name)

	songDir := filepath.Join(p.songsDir, name)
	if err := os.MkdirAll(songDir, 0755); err != nil {
		return fmt.Errorf("failed to create song dir %s: %v", songDir, err)
	}

	next := NextIndex(songDir)

	for i, img := range images {

		dest := filepath.Join(songDir, fmt.Sprintf("%s%d%s", util.SlidePrefix, next+i, util.SlideExt))

		// copy, not move: a medley's second song still needs the source
		if err := copyFile(img, dest); err != nil {
			// a single failed slide is logged and skipped, the rest of the
			// song's slides still land
			log.Error(fmt.Sprintf("failed to copy %s to %s: %v", filepath.Base(img), dest, err))
			continue
		}

		log.Info(fmt.Sprintf("copied %s -> %s/%s%d%s", filepath.Base(img), name, util.SlidePrefix, next+i, util.SlideExt))
	}

	return nil
}

// fail marks an upload failed, logging if even that cannot be recorded.
func (p *pipeline) fail(ctx context.Context, id, reason string) {
	if err := p.registry.SetStatus(ctx, id, song.StatusFailed, reason); err != nil {
		p.logger.Error(fmt.Sprintf("failed to mark upload '%s' failed: %v", id, err))
	}
}

// copyFile copies src to dest, truncating any existing dest.
func copyFile(src, dest string) error {

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
