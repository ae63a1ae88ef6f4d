package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/tdeslauriers/cantor/internal/util"
)

// Converter is the interface wrapping the external document conversion
// tools: document -> pdf, then pdf -> per-page png images.
type Converter interface {

	// ToPdf converts one staged document to a pdf in outDir and returns the
	// produced pdf path. A conversion failure is returned as an error and
	// aborts that document's processing.
	ToPdf(ctx context.Context, docPath, outDir string) (string, error)

	// ToImages rasterizes a pdf's pages into outDir and returns the produced
	// image paths in page order. On failure it logs and returns an empty
	// slice: an empty rasterization means "nothing to ingest" and must not
	// crash the batch.
	ToImages(ctx context.Context, pdfPath, outDir string) []string
}

// NewConverter creates a converter shelling out to the configured soffice
// and pdftoppm binaries, returning a pointer to the concrete implementation.
func NewConverter(r Runner, sofficeBin, pdftoppmBin string) Converter {
	return &converter{
		runner:   r,
		soffice:  sofficeBin,
		pdftoppm: pdftoppmBin,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackagePipeline)).
			With(slog.String(util.ComponentKey, util.ComponentConverter)),
	}
}

var _ Converter = (*converter)(nil)

// converter is the concrete implementation of the Converter interface.
type converter struct {
	runner   Runner
	soffice  string
	pdftoppm string

	logger *slog.Logger
}

// ToPdf is the concrete implementation of the interface method which
// converts one staged document to a pdf.
func (c *converter) ToPdf(ctx context.Context, docPath, outDir string) (string, error) {

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create pdf output dir %s: %v", outDir, err)
	}

	base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	pdfPath := filepath.Join(outDir, base+".pdf")

	c.logger.Info(fmt.Sprintf("converting %s to pdf", filepath.Base(docPath)))

	if _, err := c.runner.Run(ctx, c.soffice, "--headless", "--convert-to", "pdf", "--outdir", outDir, docPath); err != nil {
		return "", fmt.Errorf("failed to convert %s to pdf: %v", docPath, err)
	}

	// soffice exits zero even when it produced nothing for an unreadable input
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("conversion of %s produced no pdf at %s: %v", docPath, pdfPath, err)
	}

	c.logger.Info(fmt.Sprintf("pdf generated: %s", pdfPath))

	return pdfPath, nil
}

// ToImages is the concrete implementation of the interface method which
// rasterizes a pdf's pages into per-page png images.
func (c *converter) ToImages(ctx context.Context, pdfPath, outDir string) []string {

	if err := os.MkdirAll(outDir, 0755); err != nil {
		c.logger.Error(fmt.Sprintf("failed to create raster output dir %s: %v", outDir, err))
		return nil
	}

	c.logger.Info(fmt.Sprintf("converting %s to png", filepath.Base(pdfPath)))

	// pdftoppm appends -<page>.png to the prefix
	prefix := filepath.Join(outDir, "slide")
	if _, err := c.runner.Run(ctx, c.pdftoppm, "-png", pdfPath, prefix); err != nil {
		c.logger.Error(fmt.Sprintf("failed to rasterize %s: %v", pdfPath, err))
		return nil
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		c.logger.Error(fmt.Sprintf("failed to read raster output dir %s: %v", outDir, err))
		return nil
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), util.SlideExt) {
			continue
		}
		images = append(images, filepath.Join(outDir, entry.Name()))
	}

	// pdftoppm zero-pads page numbers so lexicographic order is page order,
	// but sort rather than trust directory iteration order
	sort.Strings(images)

	// cross-check the page count; a mismatch is logged, not fatal
	if pages, err := api.PageCountFile(pdfPath); err != nil {
		c.logger.Error(fmt.Sprintf("failed to read page count of %s: %v", pdfPath, err))
	} else if pages != len(images) {
		c.logger.Warn(fmt.Sprintf("%s has %d pages but rasterization produced %d images", filepath.Base(pdfPath), pages, len(images)))
	}

	c.logger.Info(fmt.Sprintf("%d images exported to %s", len(images), outDir))

	return images
}
