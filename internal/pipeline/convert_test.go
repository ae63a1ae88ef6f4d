package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeRunner records invocations and fabricates the files the external tools
// would produce.
type fakeRunner struct {
	calls   [][]string
	pages   int
	fail    bool
	produce bool // whether to fabricate output files
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {

	f.calls = append(f.calls, append([]string{name}, args...))

	if f.fail {
		return "", errors.New("tool crashed")
	}

	if !f.produce {
		return "", nil
	}

	switch name {
	case "soffice":
		// --outdir is followed by the output dir, the input path is last
		outDir := args[len(args)-2]
		doc := filepath.Base(args[len(args)-1])
		pdf := filepath.Join(outDir, doc[:len(doc)-len(filepath.Ext(doc))]+".pdf")
		return "", os.WriteFile(pdf, []byte("pdf"), 0644)
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%02d.png", prefix, i), []byte("png"), 0644); err != nil {
				return "", err
			}
		}
		return "", nil
	}

	return "", nil
}

func TestToPdf(t *testing.T) {

	dir := t.TempDir()
	doc := filepath.Join(dir, "anthem.pptx")
	if err := os.WriteFile(doc, []byte("pptx"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	runner := &fakeRunner{produce: true}
	conv := NewConverter(runner, "soffice", "pdftoppm")

	outDir := filepath.Join(dir, "pdfs")
	pdfPath, err := conv.ToPdf(context.Background(), doc, outDir)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}

	if pdfPath != filepath.Join(outDir, "anthem.pdf") {
		t.Errorf("expected pdf path under the out dir, got %s", pdfPath)
	}
	if _, err := os.Stat(pdfPath); err != nil {
		t.Errorf("expected produced pdf at %s: %v", pdfPath, err)
	}

	if len(runner.calls) != 1 || runner.calls[0][0] != "soffice" {
		t.Fatalf("expected one soffice invocation, got %v", runner.calls)
	}
	args := runner.calls[0]
	if args[1] != "--headless" || args[2] != "--convert-to" || args[3] != "pdf" {
		t.Errorf("unexpected soffice arguments: %v", args)
	}
}

func TestToPdfSilentToolFailure(t *testing.T) {

	dir := t.TempDir()
	doc := filepath.Join(dir, "anthem.pptx")
	if err := os.WriteFile(doc, []byte("pptx"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	// the tool exits zero but produces nothing
	conv := NewConverter(&fakeRunner{}, "soffice", "pdftoppm")

	if _, err := conv.ToPdf(context.Background(), doc, filepath.Join(dir, "pdfs")); err == nil {
		t.Error("expected an error when no pdf was produced")
	}
}

func TestToPdfToolError(t *testing.T) {

	dir := t.TempDir()
	conv := NewConverter(&fakeRunner{fail: true}, "soffice", "pdftoppm")

	if _, err := conv.ToPdf(context.Background(), filepath.Join(dir, "anthem.pptx"), dir); err == nil {
		t.Error("expected a tool failure to surface as an error")
	}
}

func TestToImages(t *testing.T) {

	dir := t.TempDir()
	pdf := filepath.Join(dir, "anthem.pdf")
	if err := os.WriteFile(pdf, []byte("pdf"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	conv := NewConverter(&fakeRunner{produce: true, pages: 3}, "soffice", "pdftoppm")

	images := conv.ToImages(context.Background(), pdf, filepath.Join(dir, "out"))

	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}

	// page order via the zero-padded suffix
	for i, img := range images {
		want := fmt.Sprintf("slide-%02d.png", i+1)
		if filepath.Base(img) != want {
			t.Errorf("expected image %d to be %s, got %s", i, want, filepath.Base(img))
		}
	}
}

func TestToImagesToolError(t *testing.T) {

	dir := t.TempDir()

	conv := NewConverter(&fakeRunner{fail: true}, "soffice", "pdftoppm")

	if images := conv.ToImages(context.Background(), filepath.Join(dir, "anthem.pdf"), dir); len(images) != 0 {
		t.Errorf("expected no images on a tool failure, got %v", images)
	}
}
