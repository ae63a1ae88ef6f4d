package pipeline

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tdeslauriers/cantor/internal/util"
)

// matchThreshold is the maximum per-pixel difference percentage for a slide
// to count as the boilerplate compare image.
const matchThreshold = 1.0

// Trimmer is the interface for dropping a deck's leading boilerplate
// slides: decks exported from a shared template often open with the same
// title/branding pages, which are identified by comparing each rasterized
// slide against a configured reference image.
type Trimmer interface {

	// Trim scans the rasterized images in order, and if one matches the
	// reference image, deletes it and every image before it, returning the
	// remaining image paths. With no match (or no reference configured) the
	// input is returned unchanged.
	Trim(images []string) []string
}

// NewTrimmer creates a trimmer against the reference image at comparePath,
// returning a pointer to the concrete implementation. An empty comparePath
// disables trimming.
func NewTrimmer(comparePath string) Trimmer {
	return &trimmer{
		comparePath: comparePath,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackagePipeline)).
			With(slog.String(util.ComponentKey, util.ComponentTrimmer)),
	}
}

var _ Trimmer = (*trimmer)(nil)

// trimmer is the concrete implementation of the Trimmer interface.
type trimmer struct {
	comparePath string

	logger *slog.Logger
}

// Trim is the concrete implementation of the interface method which drops
// leading boilerplate slides.
func (t *trimmer) Trim(images []string) []string {

	if t.comparePath == "" || len(images) == 0 {
		return images
	}

	ref, err := decodePng(t.comparePath)
	if err != nil {
		t.logger.Error(fmt.Sprintf("failed to read compare image %s: %v", t.comparePath, err))
		return images
	}

	matched := -1
	for i, img := range images {

		diff, err := diffPercent(ref, img)
		if err != nil {
			t.logger.Error(fmt.Sprintf("failed to compare %s: %v", img, err))
			continue
		}

		if diff < matchThreshold {
			matched = i
			break
		}
	}

	if matched == -1 {
		return images
	}

	t.logger.Info(fmt.Sprintf("boilerplate slide found at position %d, dropping %d leading slides", matched, matched+1))

	for i := 0; i <= matched; i++ {
		if err := os.Remove(images[i]); err != nil {
			t.logger.Error(fmt.Sprintf("failed to delete boilerplate slide %s: %v", filepath.Base(images[i]), err))
		}
	}

	return images[matched+1:]
}

// diffPercent returns the percentage of pixels differing between the
// reference and the image at path. Mismatched dimensions count as a total
// difference.
func diffPercent(ref image.Image, path string) (float64, error) {

	img, err := decodePng(path)
	if err != nil {
		return 0, err
	}

	rb, ib := ref.Bounds(), img.Bounds()
	if rb.Dx() != ib.Dx() || rb.Dy() != ib.Dy() {
		return 100, nil
	}

	var diff int
	for y := 0; y < rb.Dy(); y++ {
		for x := 0; x < rb.Dx(); x++ {

			r1, g1, b1, _ := ref.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			r2, g2, b2, _ := img.At(ib.Min.X+x, ib.Min.Y+y).RGBA()

			if r1 != r2 || g1 != g2 || b1 != b2 {
				diff++
			}
		}
	}

	total := rb.Dx() * rb.Dy()
	return float64(diff) / float64(total) * 100, nil
}

func decodePng(path string) (image.Image, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return png.Decode(f)
}
