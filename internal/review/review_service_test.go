package review

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/tdeslauriers/cantor/internal/util"
)

// seedSong creates a pending song directory with the named slide files.
func seedSong(t *testing.T, dataRoot, song string, slides ...string) {
	t.Helper()

	dir := filepath.Join(dataRoot, util.DirSongs, song)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create song dir: %v", err)
	}

	for _, slide := range slides {
		if err := os.WriteFile(filepath.Join(dir, slide), []byte(slide), 0644); err != nil {
			t.Fatalf("failed to seed slide %s: %v", slide, err)
		}
	}
}

func TestPendingSongsExcludesScratchDir(t *testing.T) {

	dataRoot := t.TempDir()
	seedSong(t, dataRoot, "anthem", "slide-0.png")
	seedSong(t, dataRoot, "hymn", "slide-0.png")
	seedSong(t, dataRoot, util.DirTemp, "slide-0.png")

	songs, err := NewService(dataRoot).PendingSongs()
	if err != nil {
		t.Fatalf("failed to list pending songs: %v", err)
	}

	if len(songs) != 2 || songs[0] != "anthem" || songs[1] != "hymn" {
		t.Errorf("expected sorted song names without the scratch dir, got %v", songs)
	}
}

func TestPendingSongsMissingRoot(t *testing.T) {

	songs, err := NewService(filepath.Join(t.TempDir(), "nowhere")).PendingSongs()
	if err != nil {
		t.Fatalf("expected a missing songs root to read as empty: %v", err)
	}
	if len(songs) != 0 {
		t.Errorf("expected no pending songs, got %v", songs)
	}
}

func TestPendingImagesSortedPngOnly(t *testing.T) {

	dataRoot := t.TempDir()
	seedSong(t, dataRoot, "anthem", "slide-1.png", "slide-0.png", "notes.txt")

	images, err := NewService(dataRoot).PendingImages("anthem")
	if err != nil {
		t.Fatalf("failed to list pending images: %v", err)
	}

	if len(images) != 2 || images[0] != "slide-0.png" || images[1] != "slide-1.png" {
		t.Errorf("expected sorted png filenames only, got %v", images)
	}
}

func TestCurateRenamesSelectionInOrder(t *testing.T) {

	dataRoot := t.TempDir()
	seedSong(t, dataRoot, "anthem",
		"slide-0.png", "slide-1.png", "slide-2.png", "slide-3.png", "slide-4.png")

	svc := NewService(dataRoot)

	// the admin's order wins, not the staged numbering
	final, err := svc.Curate("anthem", []string{"slide-3.png", "slide-1.png"}, "anthem")
	if err != nil {
		t.Fatalf("curation failed: %v", err)
	}

	if len(final) != 2 || final[0] != "anthem-0.png" || final[1] != "anthem-1.png" {
		t.Fatalf("expected final names [anthem-0.png anthem-1.png], got %v", final)
	}

	dir := svc.Dir("anthem")

	// selection content followed its rename: anthem-0 was slide-3
	data, err := os.ReadFile(filepath.Join(dir, "anthem-0.png"))
	if err != nil {
		t.Fatalf("failed to read finalized slide: %v", err)
	}
	if string(data) != "slide-3.png" {
		t.Errorf("expected anthem-0.png to hold slide-3's content, got %q", data)
	}

	// everything unselected is gone
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read song dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected only the 2 finalized slides to remain, got %d files", len(entries))
	}
}

func TestCurateMissingSelectionFails(t *testing.T) {

	dataRoot := t.TempDir()
	seedSong(t, dataRoot, "anthem", "slide-0.png")

	// the only selected image does not exist, so nothing finalizes
	if _, err := NewService(dataRoot).Curate("anthem", []string{"slide-9.png"}, "anthem"); err == nil {
		t.Error("expected curation with no finalized slides to fail")
	}
}

func TestDeleteRemovesSongDir(t *testing.T) {

	dataRoot := t.TempDir()
	seedSong(t, dataRoot, "anthem", "slide-0.png")

	svc := NewService(dataRoot)

	dir, err := svc.Delete("anthem")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed", dir)
	}

	if _, err := svc.Delete("anthem"); err == nil {
		t.Error("expected deleting a missing song to fail")
	}
}

func TestValidateNameRejectsTraversal(t *testing.T) {

	svc := NewService(t.TempDir())

	for _, name := range []string{"", "../etc", "a/b", `a\b`, ".."} {
		if _, err := svc.PendingImages(name); err == nil {
			t.Errorf("expected name %q to be rejected", name)
		}
	}
}

func TestImageDownscales(t *testing.T) {

	dataRoot := t.TempDir()
	dir := filepath.Join(dataRoot, util.DirSongs, "anthem")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create song dir: %v", err)
	}

	// 100x50 png, downscaled to width 10 keeps the aspect ratio
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "slide-0.png"), buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	svc := NewService(dataRoot)

	scaled, err := svc.Image("anthem", "slide-0.png", 10)
	if err != nil {
		t.Fatalf("failed to fetch thumbnail: %v", err)
	}

	thumb, err := png.Decode(bytes.NewReader(scaled))
	if err != nil {
		t.Fatalf("thumbnail is not a png: %v", err)
	}
	if thumb.Bounds().Dx() != 10 || thumb.Bounds().Dy() != 5 {
		t.Errorf("expected a 10x5 thumbnail, got %dx%d", thumb.Bounds().Dx(), thumb.Bounds().Dy())
	}

	// without a width the original bytes come back
	full, err := svc.Image("anthem", "slide-0.png", 0)
	if err != nil {
		t.Fatalf("failed to fetch full image: %v", err)
	}
	if !bytes.Equal(full, buf.Bytes()) {
		t.Error("expected the full-size fetch to return the original bytes")
	}
}
