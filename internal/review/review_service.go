package review

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"

	"github.com/tdeslauriers/cantor/internal/util"
)

// Service is the interface for the review-pending song surface: listing,
// fetching, deleting, and curating staged song directories.
type Service interface {

	// PendingSongs returns the names of song directories awaiting review.
	PendingSongs() ([]string, error)

	// PendingImages returns a pending song's staged image filenames, sorted.
	PendingImages(songName string) ([]string, error)

	// Image returns one staged image's bytes. A width above zero downscales
	// the image to that width for review grid thumbnails.
	Image(songName, imageName string, width int) ([]byte, error)

	// Delete removes a pending song's whole working directory and returns
	// the deleted path.
	Delete(songName string) (string, error)

	// Curate trims a pending song directory to the admin's ordered
	// selection: unselected images are deleted, and each selected image is
	// renamed, in order, to <finalKey>-<i>.png. A failed rename is logged
	// and skipped, leaving that one slide absent from the final set. Returns
	// the final filenames in order.
	Curate(songName string, selection []string, finalKey string) ([]string, error)

	// Dir returns the working directory path for a pending song.
	Dir(songName string) string
}

// NewService creates a review service over the song directories root,
// returning a pointer to the concrete implementation.
func NewService(dataRoot string) Service {
	return &service{
		songsDir: filepath.Join(dataRoot, util.DirSongs),

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackageReview)).
			With(slog.String(util.ComponentKey, util.ComponentReviewService)),
	}
}

var _ Service = (*service)(nil)

// service is the concrete implementation of the Service interface.
type service struct {
	songsDir string

	logger *slog.Logger
}

// PendingSongs is the concrete implementation of the interface method which
// returns the names of song directories awaiting review.
func (s *service) PendingSongs() ([]string, error) {

	entries, err := os.ReadDir(s.songsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read song directories: %v", err)
	}

	songs := []string{}
	for _, entry := range entries {
		// the rasterization scratch dir is not a song
		if !entry.IsDir() || entry.Name() == util.DirTemp {
			continue
		}
		songs = append(songs, entry.Name())
	}

	sort.Strings(songs)

	return songs, nil
}

// PendingImages is the concrete implementation of the interface method
// which returns a pending song's staged image filenames.
func (s *service) PendingImages(songName string) ([]string, error) {

	if err := validateName(songName); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.Dir(songName))
	if err != nil {
		return nil, fmt.Errorf("failed to read song dir for '%s': %v", songName, err)
	}

	images := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), util.SlideExt) {
			continue
		}
		images = append(images, entry.Name())
	}

	sort.Strings(images)

	return images, nil
}

// Image is the concrete implementation of the interface method which
// returns one staged image's bytes, optionally downscaled.
func (s *service) Image(songName, imageName string, width int) ([]byte, error) {

	if err := validateName(songName); err != nil {
		return nil, err
	}
	if err := validateName(imageName); err != nil {
		return nil, err
	}

	path := filepath.Join(s.Dir(songName), imageName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s/%s: %v", songName, imageName, err)
	}

	if width <= 0 {
		return data, nil
	}

	scaled, err := downscale(data, width)
	if err != nil {
		// fall back to full-size bytes rather than failing the review grid
		s.logger.Error(fmt.Sprintf("failed to downscale %s/%s: %v", songName, imageName, err))
		return data, nil
	}

	return scaled, nil
}

// Delete is the concrete implementation of the interface method which
// removes a pending song's working directory.
func (s *service) Delete(songName string) (string, error) {

	if err := validateName(songName); err != nil {
		return "", err
	}

	dir := s.Dir(songName)

	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("review song '%s' not found: %v", songName, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to delete review song '%s': %v", songName, err)
	}

	s.logger.Info(fmt.Sprintf("deleted review song directory %s", dir))

	return dir, nil
}

// Curate is the concrete implementation of the interface method which trims
// a pending song directory to the admin's ordered selection.
func (s *service) Curate(songName string, selection []string, finalKey string) ([]string, error) {

	if err := validateName(songName); err != nil {
		return nil, err
	}

	staged, err := s.PendingImages(songName)
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool, len(selection))
	for _, name := range selection {
		selected[name] = true
	}

	dir := s.Dir(songName)

	// delete everything the admin left out; irrevocable
	for _, name := range staged {
		if selected[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			s.logger.Error(fmt.Sprintf("failed to delete unselected image %s/%s: %v", songName, name, err))
		}
	}

	// rename the selection, in the admin's order, into the final numbering
	final := []string{}
	for i, name := range selection {

		newName := fmt.Sprintf("%s-%d%s", finalKey, i, util.SlideExt)

		if err := os.Rename(filepath.Join(dir, name), filepath.Join(dir, newName)); err != nil {
			// a skipped rename drops that one slide from the final set; it
			// must not corrupt the rest
			s.logger.Error(fmt.Sprintf("failed to rename %s/%s to %s: %v", songName, name, newName, err))
			continue
		}

		final = append(final, newName)
	}

	if len(final) == 0 {
		return nil, fmt.Errorf("curation of '%s' produced no finalized slides", songName)
	}

	return final, nil
}

// Dir is the concrete implementation of the interface method which returns
// the working directory path for a pending song.
func (s *service) Dir(songName string) string {
	return filepath.Join(s.songsDir, songName)
}

// validateName rejects names that could escape the song directories root.
func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid name: %q", name)
	}
	return nil
}

// downscale decodes png data and scales it to the target width, preserving
// aspect ratio.
func downscale(data []byte, width int) ([]byte, error) {

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode png: %v", err)
	}

	b := src.Bounds()
	if b.Dx() <= width {
		return data, nil
	}

	height := b.Dy() * width / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, fmt.Errorf("failed to encode scaled png: %v", err)
	}

	return out.Bytes(), nil
}
